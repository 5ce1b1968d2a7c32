package vm

// NopListener is a Listener whose methods all do nothing. Embed it in a
// custom listener to only override the hooks you care about.
type NopListener struct{}

func (NopListener) OnSetIncoming(*Instance, int, Value)  {}
func (NopListener) OnSetOutgoing(*Instance, int, Value)  {}
func (NopListener) OnSetTagIncoming(*Instance, int, Tag) {}
func (NopListener) OnSetTagOutgoing(*Instance, int, Tag) {}
func (NopListener) OnProduce(*Instance)                  {}
