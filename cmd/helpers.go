package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spigell/goal-tracker/internal/filtering"
	"github.com/spigell/goal-tracker/internal/goals"
)

const (
	flagYes      = "yes"
	flagSector   = "sector"
	flagStatus   = "status"
	flagEmployee = "employee"
	flagFrom     = "from"
	flagTo       = "to"
)

// confirm asks a yes/no question on the terminal. Tests replace it.
var confirm = func(label string) bool {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}

// confirmed reports whether a destructive command may proceed.
func confirmed(cmd *cobra.Command, label string) bool {
	if yes, _ := cmd.Flags().GetBool(flagYes); yes {
		return true
	}
	return confirm(label)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDate(v string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(v), time.Local)
	if err != nil {
		return time.Time{}, &goals.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", v)}
	}
	return t, nil
}

func parseAmount(field, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &goals.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a number", v)}
	}
	return f, nil
}

func addFilterFlags(flags *pflag.FlagSet) {
	flags.StringSlice(flagSector, nil, "keep goals of these sectors")
	flags.StringSlice(flagStatus, nil, "keep goals in these goal-level statuses (completed, in-progress, overdue, pending)")
	flags.String(flagEmployee, "", "keep goals assigned to this employee id")
	flags.String(flagFrom, "", "keep goals valid on or after this date (YYYY-MM-DD)")
	flags.String(flagTo, "", "keep goals valid on or before this date (YYYY-MM-DD)")
}

func filterConfigFromFlags(flags *pflag.FlagSet) (*filtering.Config, error) {
	cfg := &filtering.Config{}

	sectors, err := flags.GetStringSlice(flagSector)
	if err != nil {
		return nil, err
	}
	for _, s := range sectors {
		cfg.Sectors = append(cfg.Sectors, goals.Sector(strings.TrimSpace(s)))
	}

	statuses, err := flags.GetStringSlice(flagStatus)
	if err != nil {
		return nil, err
	}
	for _, s := range statuses {
		cfg.Statuses = append(cfg.Statuses, goals.Status(strings.TrimSpace(s)))
	}

	if cfg.EmployeeID, err = flags.GetString(flagEmployee); err != nil {
		return nil, err
	}

	for name, target := range map[string]*time.Time{flagFrom: &cfg.From, flagTo: &cfg.To} {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		if v == "" {
			continue
		}
		if *target, err = parseDate(v); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
