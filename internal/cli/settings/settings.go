// Package settings implements the settings command.
package settings

import (
	"context"
	"fmt"

	"github.com/julianstephens/goaltrack/internal/cli"
)

type SettingsCmd struct {
	List     bool    `help:"List current settings."`
	Week     *string `name:"week-convention" help:"Week convention for rollover (iso|us)."`
	Timezone *string `help:"IANA timezone, or Local for the system timezone."`
}

func (c *SettingsCmd) Run(app *cli.Context, ctx context.Context) error {
	tr, err := app.Tracker(ctx)
	if err != nil {
		return err
	}
	settings, err := tr.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List || (c.Week == nil && c.Timezone == nil) {
		fmt.Fprintln(app.Out, "Current Settings:")
		fmt.Fprintf(app.Out, "  Week Convention: %s\n", settings.WeekConvention)
		fmt.Fprintf(app.Out, "  Timezone:        %s\n", settings.Timezone)
		if app.Week != "" || app.TZ != "" {
			fmt.Fprintf(app.Out, "  In effect:       week %s, today %s\n", tr.Week(), tr.Today().Format("2006-01-02"))
		}
		return nil
	}

	if c.Week != nil {
		settings.WeekConvention = *c.Week
	}
	if c.Timezone != nil {
		settings.Timezone = *c.Timezone
	}
	if err := tr.SaveSettings(ctx, settings); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "Settings updated successfully.")
	return nil
}
