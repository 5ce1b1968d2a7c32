package schedule

import (
	"fmt"
	"strings"

	"github.com/rakunlabs/gatevm/internal/config"
	"github.com/rakunlabs/gatevm/internal/vm"
)

// JobsFromConfig turns the loaded config.Schedule section into the Job
// values Start/Reload expect, parsing each request's string tag with the
// tag names internal/server's request decoding accepts, plus "void".
func JobsFromConfig(cfg config.Schedule) ([]Job, error) {
	jobs := make([]Job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		requests := make([]vm.Request, 0, len(j.Requests))
		for _, r := range j.Requests {
			tag, err := parseTag(r.Tag)
			if err != nil {
				return nil, fmt.Errorf("schedule: job %q: %w", j.ID, err)
			}
			req := vm.Request{Port: r.Port, Tag: tag}
			if r.Value != nil {
				req.Value = vm.Some(r.Value)
			}
			requests = append(requests, req)
		}

		jobs = append(jobs, Job{
			ID:       j.ID,
			Circuit:  j.Circuit,
			CronSpec: j.Cron,
			Requests: requests,
		})
	}
	return jobs, nil
}

func parseTag(s string) (vm.Tag, error) {
	switch strings.ToLower(s) {
	case "", "void":
		return vm.Void, nil
	case "avail":
		return vm.Avail, nil
	case "notag":
		return vm.NoTag, nil
	case "req", "request":
		return vm.Req, nil
	case "reset":
		return vm.Reset, nil
	default:
		return vm.Void, fmt.Errorf("unknown tag %q", s)
	}
}
