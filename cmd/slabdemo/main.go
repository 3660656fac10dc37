// Command slabdemo exercises a Zone against the mmap page provider and
// prints how many empty pages the zone holds afterwards, the way a developer would poke at
// the allocator from a shell before wiring it into a real heap.
package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mazarinheap/mmapprovider"
	"mazarinheap/slab"
)

var rootCmd = &cobra.Command{
	Short: "slabdemo",
	Long:  `slabdemo allocates and frees objects against a slab.Zone backed by mmap pages and reports occupancy`,

	PreRunE: func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	},

	RunE: runCmdFunc,
}

func init() {
	rootCmd.Flags().Bool("debug", false, "enable debug logging of page list transitions")
	rootCmd.Flags().Uint64P("size", "s", 64, "object size in bytes to allocate")
	rootCmd.Flags().IntP("count", "n", 16, "number of objects to allocate before freeing half of them")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("slabdemo failed")
	}
}

func runCmdFunc(cmd *cobra.Command, args []string) error {
	size, err := cmd.Flags().GetUint64("size")
	if err != nil {
		return err
	}
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}

	provider := mmapprovider.New()
	zone := slab.New(slab.Config{Logger: logrus.StandardLogger()})
	layout := slab.Layout{Size: uintptr(size), Align: 8}

	if _, ok := slab.SizeToClass(layout.Size); !ok {
		return fmt.Errorf("slabdemo: size %d exceeds slab.MaxAllocSize (%d)", size, slab.MaxAllocSize)
	}

	page, err := provider.AllocatePage()
	if err != nil {
		return fmt.Errorf("slabdemo: allocating seed page: %w", err)
	}
	if err := zone.Refill(layout, page, 1); err != nil {
		return fmt.Errorf("slabdemo: refilling seed page: %w", err)
	}

	ptrs := make([]uintptr, 0, count)
	for i := 0; i < count; i++ {
		ptr, err := zone.Allocate(layout)
		if err != nil {
			if exchErr := tryRefill(zone, provider, layout); exchErr != nil {
				return fmt.Errorf("slabdemo: allocation %d: %w", i, err)
			}
			ptr, err = zone.Allocate(layout)
			if err != nil {
				return fmt.Errorf("slabdemo: allocation %d after refill: %w", i, err)
			}
		}
		ptrs = append(ptrs, ptr)
	}

	for i := 0; i < len(ptrs)/2; i++ {
		if err := zone.Deallocate(ptrs[i], layout); err != nil {
			return fmt.Errorf("slabdemo: freeing allocation %d: %w", i, err)
		}
	}

	fmt.Printf("allocated %d objects of size %d, freed %d, %d empty pages remain in the zone\n",
		count, size, len(ptrs)/2, zone.EmptyPages())
	return nil
}

// tryRefill grows the zone with one more mmap page when the requested
// size class has run out of room to exchange from elsewhere.
func tryRefill(zone *slab.Zone, provider *mmapprovider.Provider, layout slab.Layout) error {
	page, err := provider.AllocatePage()
	if err != nil {
		return err
	}
	return zone.Refill(layout, page, 1)
}
