package typedq_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/vnykmshr/typedq/pkg/typedq"
)

type Job struct {
	ID   int
	Kind string
}

func ExampleQueue_CancellableDequeue() {
	dir, err := os.MkdirTemp("", "typedq-example")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	q, err := typedq.Open[Job](filepath.Join(dir, "jobs.tdq"), nil)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = q.Close() }()

	_ = q.EnqueueAll([]Job{{ID: 1, Kind: "email"}, {ID: 2, Kind: "sms"}})

	// Not ready for email jobs yet: the head stays in the queue.
	removed, _ := q.CancellableDequeue(func(j Job) bool { return j.Kind != "email" })
	fmt.Println(removed, q.Count())

	removed, _ = q.CancellableDequeue(func(j Job) bool { return true })
	fmt.Println(removed, q.Count())

	j, ok, _ := q.Dequeue()
	fmt.Println(j.ID, j.Kind, ok)

	// Output:
	// false 2
	// true 1
	// 2 sms true
}
