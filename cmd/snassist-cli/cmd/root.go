package cmd

import (
	"fmt"
	"os"

	"snassist-backend/lib/configuration"
	"snassist-backend/lib/telemetry"
	"snassist-backend/services/studentdata"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type PortalConfig struct {
	BaseUrl  string `json:"base_url"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type Config struct {
	Portal PortalConfig            `json:"portal"`
	Store  studentdata.StoreConfig `json:"store"`
	Smtp   studentdata.SmtpConfig  `json:"smtp"`
	// where change notifications are sent, empty disables them
	NotifyEmail string `json:"notify_email"`
	// watch poll interval as a Go duration string, defaults to 30m
	Interval string `json:"interval"`
	Debug    bool   `json:"debug"`
}

var config Config

var rootCmd = &cobra.Command{
	Use:   "snassist-cli",
	Short: "snassist-cli scrapes a schulNetz portal and tracks changes to your data.",
}

func Execute() {
	var err error
	config, err = configuration.Search[Config]("snassist.json5")
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not read snassist.json5:", err)
		os.Exit(1)
	}
	telemetry.InitSlog(config.Debug)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
