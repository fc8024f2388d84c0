package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"multisweep/internal/dataset"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported result formats",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range dataset.WriteableTypes {
			fmt.Printf("%-8s%s\n", t, dataset.TypeExt[t])
		}
	},
}
