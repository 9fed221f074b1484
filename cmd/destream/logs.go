package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/destream-go/pkg/logger"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show session, download or error event logs",
	Long: `Print entries from the daily event logs written when logging.logs_dir
is configured. Use --follow to stream new entries.`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().String("category", string(logger.CategoryDownload), "Log category: session, download or error")
	logsCmd.Flags().String("date", "", "Day to read as YYYY-MM-DD (default today)")
	logsCmd.Flags().IntP("lines", "n", 50, "Number of entries to show, 0 for all")
	logsCmd.Flags().StringP("grep", "g", "", "Only show entries containing this text")
	logsCmd.Flags().BoolP("follow", "f", false, "Stream new entries until interrupted")
}

func runLogs(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(nil)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.config.Logging.LogsDir == "" {
		return fmt.Errorf("event logs are disabled, set logging.logs_dir")
	}

	flags := cmd.Flags()
	name, _ := flags.GetString("category")
	category, err := logger.ParseCategory(name)
	if err != nil {
		return err
	}
	dateFlag, _ := flags.GetString("date")
	date, err := parseLogDate(dateFlag)
	if err != nil {
		return err
	}
	limit, _ := flags.GetInt("lines")
	query, _ := flags.GetString("grep")
	follow, _ := flags.GetBool("follow")

	reader := logger.NewLogReader(env.config.Logging.LogsDir)

	var entries []logger.LogEntry
	if query != "" {
		entries, err = reader.SearchLogs(category, date, query, limit)
	} else {
		entries, err = reader.ReadLogs(category, date, limit)
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		printLogEntry(os.Stdout, e)
	}

	if !follow {
		return nil
	}

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	stream := make(chan logger.LogEntry)
	done := make(chan error, 1)
	go func() { done <- reader.TailLogs(ctx, category, stream) }()

	for {
		select {
		case e := <-stream:
			if query == "" || e.Matches(query) {
				printLogEntry(os.Stdout, e)
			}
		case err := <-done:
			return err
		}
	}
}

// parseLogDate reads YYYY-MM-DD in local time; empty means today
func parseLogDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// printLogEntry writes "<ts> <LEVEL> <msg> key=value ..." with sorted keys
func printLogEntry(w io.Writer, e logger.LogEntry) {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", e.Timestamp, strings.ToUpper(e.Level), e.Message)
	for _, k := range keys {
		v := e.Fields[k]
		if s, ok := v.(string); ok {
			fmt.Fprintf(&b, " %s=%s", k, s)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			raw = []byte(fmt.Sprint(v))
		}
		fmt.Fprintf(&b, " %s=%s", k, raw)
	}
	fmt.Fprintln(w, strings.TrimSpace(b.String()))
}
