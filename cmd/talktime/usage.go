package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/svc/metering"
)

type usageReport struct {
	UserID        uuid.UUID             `json:"user_id"`
	Status        *metering.UsageStatus `json:"status"`
	TrialEligible bool                  `json:"trial_eligible"`
	Scenarios     *quota.CountQuota     `json:"scenarios"`
}

func newUsageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <user-id>",
		Short: "Print a user's usage status as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil || userID == uuid.Nil {
				return fmt.Errorf("%w: %q", quota.ErrUnauthenticated, args[0])
			}
			return a.usage(cmd.Context(), cmd.OutOrStdout(), userID)
		},
	}
}

func (a *app) usage(ctx context.Context, out io.Writer, userID uuid.UUID) error {
	b, err := connect(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer b.close(context.WithoutCancel(ctx), a.log)

	svc, err := b.service(a.cfg, a.log)
	if err != nil {
		return err
	}
	return report(ctx, out, svc, userID)
}

func report(ctx context.Context, out io.Writer, svc *metering.Service, userID uuid.UUID) error {
	st, err := svc.GetUsageStatus(ctx, userID)
	if err != nil {
		return err
	}
	eligible, err := svc.CanStartFreeTrial(ctx, userID)
	if err != nil {
		return err
	}
	scenarios, err := svc.CheckScenarioLimit(ctx, userID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(usageReport{
		UserID:        userID,
		Status:        st,
		TrialEligible: eligible,
		Scenarios:     scenarios,
	})
}
