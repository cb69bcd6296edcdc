package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/log"
)

type routePlan struct {
	Pattern string          `json:"pattern"`
	Plan    *di.Description `json:"plan,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func newPlanCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [pattern...]",
		Short: "Print the resolution plans of the routes as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			r := assemble(cfg, log.Discard())

			var (
				out  []routePlan
				errs []error
			)
			for _, rt := range r.Routes() {
				if len(args) > 0 && !slices.Contains(args, rt.Pattern) {
					continue
				}
				rp := routePlan{Pattern: rt.Pattern}
				plan, err := r.Injector().Resolve(rt.Target)
				if err != nil {
					rp.Error = err.Error()
					errs = append(errs, err)
				} else {
					d := plan.Describe()
					rp.Plan = &d
				}
				out = append(out, rp)
			}
			if len(args) > 0 && len(out) == 0 {
				return fmt.Errorf("no route matches %q", args)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
}
