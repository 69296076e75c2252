package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoukydides/riscos-psifs-sub001/internal/async"
	"github.com/thoukydides/riscos-psifs-sub001/internal/config"
)

func parseHandle(s string) (async.Handle, error) {
	var n uint64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid operation handle %q", s)
	}
	return async.Handle(n), nil
}

func startCmd(opt *config.Options) *cobra.Command {
	var root, pattern string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start a find operation and print its handle",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDaemon(*opt)
			if err != nil {
				return err
			}
			defer d.Close()
			handle, err := d.engine.Start(async.KindFind, async.FindParams{Root: root, Pattern: pattern})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uint32(handle))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", `\`, "remote directory to search from")
	cmd.Flags().StringVar(&pattern, "pattern", "*", "wildcard pattern to match")
	return cmd
}

func pollCmd(opt *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "poll <handle>",
		Short: "report one operation's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			d, err := newDaemon(*opt)
			if err != nil {
				return err
			}
			defer d.Close()
			result, err := d.engine.Poll(handle)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s (%s)\n", result.Status, result.Description, result.Detail)
			return nil
		},
	}
}

func statusCmd(opt *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "list every live root operation's handle",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDaemon(*opt)
			if err != nil {
				return err
			}
			defer d.Close()
			for _, h := range d.engine.StatusAll() {
				fmt.Println(uint32(h))
			}
			return nil
		},
	}
}

func responseCmd(opt *config.Options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "response <handle>",
		Short: "answer a waiting operation's prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			resp, err := parseResponse(name)
			if err != nil {
				return err
			}
			d, err := newDaemon(*opt)
			if err != nil {
				return err
			}
			defer d.Close()
			return d.engine.Response(handle, resp)
		},
	}
	cmd.Flags().StringVar(&name, "answer", "continue", "continue, copy, skip, retry, or quiet")
	return cmd
}

func parseResponse(s string) (async.Response, error) {
	switch s {
	case "continue":
		return async.ResponseContinue, nil
	case "copy":
		return async.ResponseCopy, nil
	case "skip":
		return async.ResponseSkip, nil
	case "retry":
		return async.ResponseRetry, nil
	case "quiet":
		return async.ResponseQuiet, nil
	default:
		return 0, fmt.Errorf("unknown response %q", s)
	}
}

func pauseCmd(opt *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <handle>",
		Short: "pause an operation and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			d, err := newDaemon(*opt)
			if err != nil {
				return err
			}
			defer d.Close()
			return d.engine.Pause(handle)
		},
	}
}

func resumeCmd(opt *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <handle>",
		Short: "resume a paused operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			d, err := newDaemon(*opt)
			if err != nil {
				return err
			}
			defer d.Close()
			return d.engine.Resume(handle)
		},
	}
}

func endCmd(opt *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "end <handle>",
		Short: "abort (or reap, if already done) an operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			d, err := newDaemon(*opt)
			if err != nil {
				return err
			}
			defer d.Close()
			return d.engine.End(handle)
		},
	}
}
