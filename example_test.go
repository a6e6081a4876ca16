package tick_test

import (
	"context"
	"fmt"

	"github.com/ryhazerus/tick"
	"github.com/ryhazerus/tick/store"
)

func ExampleService_Count() {
	svc := tick.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, _ := svc.Count(ctx)
		fmt.Print(out)
	}
	// Output:
	// Tick: 0
	// Tick: 1
	// Tick: 2
}

func ExampleSupervisor_Restart() {
	st := store.NewMemoryStore()
	sup := tick.NewSupervisor(func() *tick.Service {
		return tick.New(tick.WithStore(st))
	})
	ctx := context.Background()

	sup.Count(ctx)
	out, _ := sup.Count(ctx)
	fmt.Print(out)

	sup.Restart(nil)
	out, _ = sup.Count(ctx)
	fmt.Print(out)
	// Output:
	// Tick: 1
	// Tick: 0
}

func ExampleWithRestartPolicy() {
	st := store.NewMemoryStore()
	sup := tick.NewSupervisor(func() *tick.Service {
		return tick.New(tick.WithStore(st), tick.WithRestartPolicy(tick.ResumeOnRestart))
	})
	ctx := context.Background()

	sup.Count(ctx)
	sup.Count(ctx)
	sup.Restart(nil)

	out, _ := sup.Count(ctx)
	fmt.Print(out)
	// Output: Tick: 2
}
