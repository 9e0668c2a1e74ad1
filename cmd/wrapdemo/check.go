package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/wrappers"
	"github.com/byte4ever/wrappers/httpx"
)

var checkConfigPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a stack configuration and print each stack's layers",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "path to the stack configuration file (required)")
	_ = checkCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	reg, err := wrappers.LoadConfig(checkConfigPath)
	if err != nil {
		return err
	}

	names := reg.ConfigNames()
	if len(names) == 0 {
		return fmt.Errorf("%s: no stacks defined", checkConfigPath)
	}

	out := cmd.OutOrStdout()

	for _, name := range names {
		// A private registry keeps the throwaway stacks out of the default one.
		stack := wrappers.GetStack[*httpx.Traced, http.ResponseWriter, greeting](
			reg,
			name,
			wrappers.WithRegistry(wrappers.NewRegistry()),
			wrappers.WithCacheFactory(cacheFactory[greeting]()),
		)

		layers := stack.Names()
		stack.Close()

		if len(layers) == 0 {
			layers = []string{"(pass-through)"}
		}

		fmt.Fprintf(out, "%s: %s\n", name, strings.Join(layers, " -> "))
	}

	return nil
}
