// Package main - test-runner
// Executable to run the headless soak scenarios.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MRamiBalles/CellArena/test"
)

func main() {
	fmt.Println("🦠 CELL ARENA - SOAK TEST SUITE")
	fmt.Println("================================================")

	passed := 0
	failed := 0

	for _, sc := range test.DefaultScenarios() {
		fmt.Printf("\n🧪 Running: %s (%s, %d bots, %d ticks)...\n", sc.Name, sc.Mode, sc.Bots, sc.Ticks)
		start := time.Now()
		r := test.Run(sc)

		if r.Passed {
			passed++
			fmt.Printf("   ✅ %d events in %v\n", r.Events, time.Since(start).Round(time.Millisecond))
			continue
		}
		failed++
		fmt.Printf("   ❌ %d violations\n", len(r.Violations))
		for _, v := range r.Violations {
			fmt.Println("      - " + v)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("   ✅ Passed: %d\n", passed)
	fmt.Printf("   ❌ Failed: %d\n", failed)

	if failed > 0 {
		fmt.Println("\n⚠️  Arena invariants broken")
		os.Exit(1)
	}
	fmt.Println("\n✅ Arena is ready for deployment")
}
