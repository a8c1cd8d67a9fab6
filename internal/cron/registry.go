package cron

import "context"

// Job is a housekeeping task. Run reports how many rows it purged.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Registry holds jobs in the order they run.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register appends job, ignoring nil.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
