package worker

import (
	"context"
	"log"
	"sync"

	"example.com/keycloak-provisioner/internal/model"
	"example.com/keycloak-provisioner/internal/provisioner"
	"example.com/keycloak-provisioner/internal/queue"
	"example.com/keycloak-provisioner/internal/store"
)

// RunFunc executes one provisioning task and returns the report summary.
type RunFunc func(ctx context.Context, t *model.Task) (string, error)

// Worker consumes task ids from the queue and runs provisioning batches.
// Identities inside a batch are strictly sequential; the pool size only
// controls how many independent tasks may run at once and defaults to 1.
type Worker struct {
	store      store.Store
	qclient    queue.Client
	workerPool int
	run        RunFunc
	wg         sync.WaitGroup
}

func NewWorker(s store.Store, q queue.Client, pool int) *Worker {
	if pool < 1 {
		pool = 1
	}
	return &Worker{store: s, qclient: q, workerPool: pool, run: runTask}
}

// SetRunFunc replaces the task executor. Tests use it to avoid reaching a
// real Keycloak server.
func (w *Worker) SetRunFunc(run RunFunc) { w.run = run }

func runTask(ctx context.Context, t *model.Task) (string, error) {
	report, err := provisioner.RunTask(ctx, t.Project, t.Payload)
	if err != nil {
		return "", err
	}
	return report.Summary(), nil
}

func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.workerPool; i++ {
		w.wg.Add(1)
		go func(idx int) {
			defer w.wg.Done()
			log.Printf("worker %d started", idx)
			msgs, err := w.qclient.Consume(ctx)
			if err != nil {
				log.Printf("worker %d failed to consume: %v", idx, err)
				return
			}
			for {
				select {
				case <-ctx.Done():
					log.Printf("worker %d stopping", idx)
					return
				case id, ok := <-msgs:
					if !ok {
						log.Printf("worker %d messages channel closed", idx)
						return
					}
					w.process(ctx, id)
				}
			}
		}(i)
	}
	// wait in background for ctx cancellation then wg
	go func() {
		<-ctx.Done()
		log.Println("waiting for workers to finish...")
		w.wg.Wait()
	}()
}

func (w *Worker) process(ctx context.Context, id string) {
	log.Printf("processing task %s", id)
	t, err := w.store.GetTask(id)
	if err != nil {
		log.Printf("task %s not found: %v", id, err)
		return
	}

	t.Status = model.StatusRunning
	_ = w.store.UpdateTask(t)

	summary, err := w.run(ctx, t)
	if err != nil {
		log.Printf("task %s failed: %v", id, err)
		t.Status = model.StatusFailed
		t.Error = err.Error()
	} else {
		log.Printf("task %s succeeded: %s", id, summary)
		t.Status = model.StatusSuccess
		t.Result = summary
	}
	_ = w.store.UpdateTask(t)
}
