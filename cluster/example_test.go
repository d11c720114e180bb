package cluster_test

import (
	"fmt"

	"github.com/katalvlaran/soundmotif/cluster"
)

// ExampleRun clusters five sequences where only one pair is close.
func ExampleRun() {
	res, err := cluster.Run(cluster.Dense{
		{0, 6, 7, 8, 9},
		{6, 0, 10, 1, 11},
		{7, 10, 0, 12, 13},
		{8, 1, 12, 0, 14},
		{9, 11, 13, 14, 0},
	}, cluster.WithPercentile(0.05))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, ev := range res.Events {
		fmt.Printf("merge %d+%d at %.1f (%s)\n", ev.A, ev.B, ev.Distance, ev.Kind)
	}
	fmt.Println(res.Clusters)
	// Output:
	// merge 1+3 at 1.0 (seq-seq)
	// [[0] [1 3] [2] [4]]
}
