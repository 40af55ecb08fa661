package bvh

import "sync"

// A taskPool runs pushed tasks on background goroutines. When created with
// a positive worker count, at most that many tasks run concurrently and
// each running task is handed a distinct worker index in [0, numWorkers).
type taskPool struct {
	wg    sync.WaitGroup
	slots chan int
}

// Create a task pool. A numWorkers value <= 0 creates an unbounded pool
// whose tasks all receive worker index -1.
func newTaskPool(numWorkers int) *taskPool {
	p := &taskPool{}
	if numWorkers > 0 {
		p.slots = make(chan int, numWorkers)
		for i := 0; i < numWorkers; i++ {
			p.slots <- i
		}
	}
	return p
}

// Schedule a task for execution.
func (p *taskPool) push(task func(worker int)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.slots == nil {
			task(-1)
			return
		}
		worker := <-p.slots
		defer func() { p.slots <- worker }()
		task(worker)
	}()
}

// Block until all pushed tasks (including tasks pushed by other tasks)
// have completed.
func (p *taskPool) wait() {
	p.wg.Wait()
}
