package provisioner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Report summarizes one batch run. Entries appear in input order, and
// every input name ends up in exactly one of the two lists.
type Report struct {
	Project   string
	Succeeded []string
	Failed    []string
}

func (r *Report) Total() int { return len(r.Succeeded) + len(r.Failed) }

// Summary renders the one-line form stored on the task record.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%d succeeded, %d failed of %d", len(r.Succeeded), len(r.Failed), r.Total())
	if len(r.Failed) > 0 {
		s += " (failed: " + strings.Join(r.Failed, ", ") + ")"
	}
	return s
}

// Runner executes batches of identities strictly sequentially.
type Runner struct {
	cfg      Config
	client   AdminClient
	pipeline *Pipeline
}

func NewRunner(client AdminClient, cfg Config) *Runner {
	return &Runner{cfg: cfg, client: client, pipeline: NewPipeline(client, cfg)}
}

// Run authenticates once up front, then provisions every identity in input
// order with a short pause between identities. A failed identity is recorded
// and the loop continues; only the up-front authentication aborts the batch.
func (r *Runner) Run(ctx context.Context, projectName string, fullNames []string) (*Report, error) {
	if err := r.client.Login(ctx); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	log.Printf("provisioner: starting batch of %d users for project %q (domain %s)",
		len(fullNames), projectName, r.cfg.EmailDomain)
	report := &Report{Project: projectName}
	for i, name := range fullNames {
		log.Printf("provisioner: processing user %d/%d: %s", i+1, len(fullNames), name)
		res := r.pipeline.Provision(ctx, name, projectName)
		if res.Succeeded {
			report.Succeeded = append(report.Succeeded, name)
		} else {
			report.Failed = append(report.Failed, name)
		}
		if i < len(fullNames)-1 {
			time.Sleep(r.cfg.Pause)
		}
	}

	log.Printf("provisioner: batch finished: %s", report.Summary())
	for _, name := range report.Failed {
		log.Printf("provisioner: failed user: %s", name)
	}
	return report, nil
}
