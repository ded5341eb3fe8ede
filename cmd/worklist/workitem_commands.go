package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"worklist/internal/dataset"
	"worklist/internal/store"
	"worklist/internal/workitem"
)

const addConcurrency = 4

func newWorkitemCommand(ctx *commandContext) *cobra.Command {
	workitemCmd := &cobra.Command{
		Use:     "workitem",
		Aliases: []string{"wi"},
		Short:   "Create, inspect and transition workitems",
	}
	workitemCmd.AddCommand(newWorkitemAddCommand(ctx))
	workitemCmd.AddCommand(newWorkitemShowCommand(ctx))
	workitemCmd.AddCommand(newWorkitemTransitionCommand(ctx))
	workitemCmd.AddCommand(newWorkitemNewUIDCommand())
	return workitemCmd
}

type addOutcome struct {
	file   string
	result workitem.AddResult
	err    error
}

func newWorkitemAddCommand(ctx *commandContext) *cobra.Command {
	var uid string

	cmd := &cobra.Command{
		Use:   "add FILE...",
		Short: "Add workitems from DICOM JSON datasets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid = strings.TrimSpace(uid)
			if uid != "" && len(args) > 1 {
				return fmt.Errorf("--uid applies to a single file, got %d", len(args))
			}
			reqCtx := ctx.requestContext(cmd)
			partition := ctx.partition()

			var outcomes []addOutcome
			err := ctx.withService(reqCtx, func(svc *workitem.Service, _ *store.Handle) error {
				outcomes = addFiles(reqCtx, svc, partition, uid, args)
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(outcomes))
			var errs []error
			for _, o := range outcomes {
				if o.err != nil {
					rows = append(rows, []string{filepath.Base(o.file), "", "", "", "error: " + workitem.Kind(o.err)})
					errs = append(errs, fmt.Errorf("%s: %w", o.file, o.err))
					continue
				}
				rows = append(rows, []string{
					filepath.Base(o.file),
					o.result.WorkitemUID,
					strconv.FormatInt(o.result.WorkitemKey, 10),
					strconv.FormatInt(o.result.Watermark, 10),
					stateLabel(workitem.StateScheduled, colorize),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Workitem UID", "Key", "Watermark", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				colorize,
			))
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "Workitem UID to use when the dataset does not carry AffectedSOPInstanceUID")
	return cmd
}

// addFiles adds each file concurrently and returns outcomes in argument
// order. A failed file does not stop the others.
func addFiles(ctx context.Context, svc *workitem.Service, partition int, uid string, files []string) []addOutcome {
	outcomes := make([]addOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(addConcurrency)
	for i, file := range files {
		g.Go(func() error {
			result, err := addFile(gctx, svc, partition, uid, file)
			outcomes[i] = addOutcome{file: file, result: result, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func addFile(ctx context.Context, svc *workitem.Service, partition int, uid, path string) (workitem.AddResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return workitem.AddResult{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := dataset.DecodeJSON(f)
	if err != nil {
		return workitem.AddResult{}, err
	}
	return svc.Add(ctx, partition, uid, ds)
}

type workitemView struct {
	WorkitemUID        string `json:"workitem_uid"`
	WorkitemKey        int64  `json:"workitem_key"`
	PartitionKey       int    `json:"partition_key"`
	Status             string `json:"status"`
	ProcedureStepState string `json:"procedure_step_state"`
	Watermark          int64  `json:"watermark"`
	TransactionUID     string `json:"transaction_uid,omitempty"`
}

func newWorkitemView(md *workitem.Metadata) workitemView {
	return workitemView{
		WorkitemUID:        md.WorkitemUID,
		WorkitemKey:        md.WorkitemKey,
		PartitionKey:       md.PartitionKey,
		Status:             md.Status.String(),
		ProcedureStepState: string(md.ProcedureStepState),
		Watermark:          md.Watermark,
		TransactionUID:     md.TransactionUID,
	}
}

func newWorkitemShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show UID",
		Short: "Show stored metadata for a workitem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := strings.TrimSpace(args[0])
			reqCtx := ctx.requestContext(cmd)
			partition := ctx.partition()

			var md *workitem.Metadata
			var revision string
			err := ctx.withService(reqCtx, func(svc *workitem.Service, handle *store.Handle) error {
				var err error
				md, err = svc.Get(reqCtx, partition, uid)
				revision = handle.Revision().Name
				return err
			})
			if err != nil {
				return err
			}
			if md == nil {
				return &workitem.NotFoundError{PartitionKey: partition, UID: uid}
			}

			if jsonOutput {
				return writeJSON(cmd, newWorkitemView(md))
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			transactionUID := md.TransactionUID
			if transactionUID == "" {
				transactionUID = "-"
			}
			rows := [][]string{
				{"Workitem UID", md.WorkitemUID},
				{"Workitem key", strconv.FormatInt(md.WorkitemKey, 10)},
				{"Partition", strconv.Itoa(md.PartitionKey)},
				{"Status", md.Status.String()},
				{"State", stateLabel(md.ProcedureStepState, colorize)},
				{"Watermark", strconv.FormatInt(md.Watermark, 10)},
				{"Transaction UID", transactionUID},
				{"Store revision", revision},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil, colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newWorkitemTransitionCommand(ctx *commandContext) *cobra.Command {
	var attempts int

	cmd := &cobra.Command{
		Use:   "transition UID STATE",
		Short: "Move a workitem to a new procedure step state",
		Long: "Move a workitem to IN PROGRESS, COMPLETED or CANCELED. Concurrency\n" +
			"conflicts are retried up to --attempts times; illegal transitions are not.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := strings.TrimSpace(args[0])
			target, err := workitem.ParseState(args[1])
			if err != nil {
				return err
			}
			reqCtx := ctx.requestContext(cmd)
			partition := ctx.partition()
			policy := ctx.retryPolicy(attempts)

			var md *workitem.Metadata
			err = ctx.withService(reqCtx, func(svc *workitem.Service, _ *store.Handle) error {
				var err error
				md, err = workitem.Retry(reqCtx, policy, func(c context.Context) (*workitem.Metadata, error) {
					return svc.Transition(c, partition, uid, target)
				})
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workitem %s is now %s (watermark %d)\n",
				md.WorkitemUID, stateLabel(md.ProcedureStepState, shouldColorize(out)), md.Watermark)
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 0, "Attempts on concurrency conflict (defaults to workitem.transition_attempts)")
	return cmd
}

func newWorkitemNewUIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "new-uid",
		Short:       "Print a fresh 2.25 workitem UID",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), workitem.NewUID())
			return nil
		},
	}
}
