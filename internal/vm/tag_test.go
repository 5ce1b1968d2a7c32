package vm

import "testing"

func TestJoin(t *testing.T) {
	cases := []struct {
		a, b, want Tag
	}{
		{Void, Avail, Avail},
		{Req, NoTag, Req},
		{Reset, Req, Reset},
		{NoTag, NoTag, NoTag},
		{Avail, Void, Avail},
	}
	for _, c := range cases {
		if got := Join(c.a, c.b); got != c.want {
			t.Errorf("Join(%s, %s) = %s, want %s", c.a, c.b, got, c.want)
		}
	}
}

func TestTagOrder(t *testing.T) {
	order := []Tag{Void, Avail, NoTag, Req, Reset}
	for i := 1; i < len(order); i++ {
		if !(order[i-1] < order[i]) {
			t.Fatalf("%s should be strictly less than %s", order[i-1], order[i])
		}
	}
}
