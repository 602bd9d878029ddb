package main

import (
	"github.com/spf13/cobra"

	"github.com/myhockeyrecruiting/mhr/core/plan"
)

const cliActor = "admin-cli"

func (cli *commandLine) grantPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grantplan <email> <plan>",
		Short: "Give a parent a plan without going through Stripe",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.usrSvc.GrantPlan(cmd.Context(), args[0], plan.ID(args[1]))
			if err != nil {
				return err
			}
			cli.printf("%s is now on the %s plan", args[0], p.PlanID)
			return nil
		},
	}
}

func (cli *commandLine) blockEmailCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "blockemail <email>",
		Short: "Prevent an email address from signing up or signing in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := cli.usrSvc.BlockEmail(cmd.Context(), args[0], reason, cliActor)
			if err != nil {
				return err
			}
			cli.printf("blocked %s", be.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the address is blocked")
	return cmd
}

func (cli *commandLine) unblockEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblockemail <email>",
		Short: "Lift the block of an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.usrSvc.UnblockEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			cli.printf("unblocked %s", args[0])
			return nil
		},
	}
}
