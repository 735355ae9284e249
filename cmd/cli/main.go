package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/generic"
	"gonum.org/v1/gonum/mat"
	stompcosts "stomp_costs"
)

func main() {
	err := realMain(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "cost function config JSON",
		Required: true,
	}
	requestFlag = &cli.StringFlag{
		Name:     "request",
		Usage:    "planning request JSON",
		Required: true,
	}
	trajectoryFlag = &cli.StringSliceFlag{
		Name:     "trajectory",
		Usage:    "trajectory JSON, a list of waypoints; repeat for several rollouts",
		Required: true,
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "log every rollout",
	}
)

func realMain(args []string) error {
	app := &cli.App{
		Name:  "stomp-costs",
		Usage: "evaluate the tool goal pose cost function offline",
		Commands: []*cli.Command{
			{
				Name:   "goal",
				Usage:  "print the goal extracted from a planning request",
				Flags:  []cli.Flag{configFlag, requestFlag, debugFlag},
				Action: goalAction,
			},
			{
				Name:   "evaluate",
				Usage:  "score trajectories against the goal of a planning request",
				Flags:  []cli.Flag{configFlag, requestFlag, trajectoryFlag, debugFlag},
				Action: evaluateAction,
			},
			{
				Name:   "service",
				Usage:  "drive the tool goal pose service through DoCommand and print its trace",
				Flags:  []cli.Flag{configFlag, requestFlag, trajectoryFlag, debugFlag},
				Action: serviceAction,
			},
		},
	}
	return app.Run(args)
}

func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewLogger("stomp-costs")
	if c.Bool(debugFlag.Name) {
		logger.SetLevel(logging.DEBUG)
	}
	return logger
}

func setup(c *cli.Context, logger logging.Logger) (*stompcosts.ToolGoalPose, *stompcosts.Config, error) {
	cfg, err := stompcosts.LoadConfigFile(c.String(configFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	kin, err := cfg.LoadKinematics(logger)
	if err != nil {
		return nil, nil, err
	}
	cost := stompcosts.NewToolGoalPose(kin, logger)
	if err := cost.Configure(cfg); err != nil {
		return nil, nil, err
	}
	return cost, cfg, nil
}

func loadRequest(c *cli.Context) (*stompcosts.PlanRequest, error) {
	data, err := os.ReadFile(c.String(requestFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	return stompcosts.ParsePlanRequestJSON(data)
}

func loadWaypoints(path string) ([][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trajectory file: %w", err)
	}
	var waypoints [][]float64
	if err := json.Unmarshal(data, &waypoints); err != nil {
		return nil, fmt.Errorf("failed to parse trajectory %s: %w", path, err)
	}
	return waypoints, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func goalAction(c *cli.Context) error {
	logger := newLogger(c)
	cost, _, err := setup(c, logger)
	if err != nil {
		return err
	}
	req, err := loadRequest(c)
	if err != nil {
		return err
	}
	goal, err := cost.SetMotionPlanRequest(c.Context, req)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"goal_id":       goal.ID.String(),
		"source":        goal.Source,
		"pose":          stompcosts.NewPoseConfig(goal.TargetPose),
		"tolerance":     goal.Tolerance,
		"max_tolerance": goal.Bounds.Max,
	})
}

func evaluateAction(c *cli.Context) error {
	logger := newLogger(c)
	cost, cfg, err := setup(c, logger)
	if err != nil {
		return err
	}
	req, err := loadRequest(c)
	if err != nil {
		return err
	}
	if _, err := cost.SetMotionPlanRequest(c.Context, req); err != nil {
		return err
	}

	var rollouts []mat.Matrix
	for _, path := range c.StringSlice(trajectoryFlag.Name) {
		waypoints, err := loadWaypoints(path)
		if err != nil {
			return err
		}
		params, err := stompcosts.TrajectoryFromWaypoints(waypoints)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rollouts = append(rollouts, params)
	}

	results, err := stompcosts.EvaluateRollouts(c.Context, cost, 0, rollouts, cfg.MaxParallelRollouts)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"results": results,
		"best":    stompcosts.BestRollout(results),
	})
}

func serviceAction(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(c)

	cfg, err := stompcosts.LoadConfigFile(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	svc, err := stompcosts.NewService(ctx, resource.NewName(generic.API, "tool-goal-pose"), cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close(ctx)

	reqData, err := os.ReadFile(c.String(requestFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to read request file: %w", err)
	}
	var request map[string]interface{}
	if err := json.Unmarshal(reqData, &request); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	goal, err := svc.DoCommand(ctx, map[string]interface{}{"command": "set_goal", "request": request})
	if err != nil {
		return err
	}
	logger.Infof("Goal: %+v", goal)

	var rollouts []interface{}
	for _, path := range c.StringSlice(trajectoryFlag.Name) {
		waypoints, err := loadWaypoints(path)
		if err != nil {
			return err
		}
		rollout := make([]interface{}, len(waypoints))
		for i, wp := range waypoints {
			joints := make([]interface{}, len(wp))
			for j, v := range wp {
				joints[j] = v
			}
			rollout[i] = joints
		}
		rollouts = append(rollouts, rollout)
	}
	result, err := svc.DoCommand(ctx, map[string]interface{}{"command": "evaluate_rollouts", "rollouts": rollouts})
	if err != nil {
		return err
	}
	logger.Infof("Rollouts: %+v", result)

	evals, err := svc.DoCommand(ctx, map[string]interface{}{"command": "evaluations"})
	if err != nil {
		return err
	}
	return printJSON(evals)
}
