/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// bpmflow is the CLI entrypoint: a `serve` daemon command wiring every
// collaborator together, plus synchronous instance-management commands
// for local operation without the bus/dispatch path.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bpmflow/src/bpmnxml"
	"bpmflow/src/bus"
	"bpmflow/src/core/config"
	"bpmflow/src/core/logger"
	"bpmflow/src/core/models"
	"bpmflow/src/dispatch"
	"bpmflow/src/health"
	"bpmflow/src/incident"
	"bpmflow/src/instance"
	"bpmflow/src/process"
	"bpmflow/src/registry"
	"bpmflow/src/storage"
	"bpmflow/src/timer"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "bpmflow",
		Short: "BPMN token-based process execution engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")

	root.AddCommand(
		serveCmd(),
		deployCmd(),
		createInstanceCmd(),
		suspendCmd(),
		resumeCmd(),
		terminateCmd(),
		showInstanceCmd(),
		listIncidentsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// engine bundles every collaborator the CLI commands and the serve daemon
// share, wired exactly once per process.
type engine struct {
	cfg       *config.Config
	store     storage.Storage
	tasks     registry.Registry
	timers    *timer.Scheduler
	bus       *bus.Client
	incidents *incident.Manager
	instances *instance.Manager
	executor  *process.Executor
	dispatch  *dispatch.Dispatcher
	health    *health.Server
}

// buildEngine loads config and wires every collaborator in dependency
// order: Store, Task Registry and Event Bus Client are leaves; the Timer
// Scheduler publishes through the bus; the Instance Manager and Process
// Executor close the Lifecycle/Executor two-way wiring described in
// instance.Manager.SetExecutor; the Dispatch Layer and health server sit
// on top.
func buildEngine() (*engine, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	store := storage.NewStorage(&storage.Config{Path: cfg.Database.URL, Options: &cfg.Storage.Options})
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	if err := store.Start(); err != nil {
		return nil, fmt.Errorf("failed to start storage: %w", err)
	}

	pluginDir := cfg.BPMN.PluginDir
	if v := os.Getenv("PYTHMATA_PLUGIN_DIR"); v != "" {
		pluginDir = v
	}
	tasks, err := registry.NewDirRegistry(pluginDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load task registry: %w", err)
	}

	busClient, err := bus.Open(cfg.Database.URL + "-bus")
	if err != nil {
		return nil, fmt.Errorf("failed to open event bus: %w", err)
	}

	incidents := incident.NewManager(store)
	instances := instance.NewManager(store, bpmnxml.New(), incidents)

	scheduler := timer.New(store, busClient)

	execCfg := process.Config{ScriptTimeout: cfg.Process.ScriptTimeout}
	executor := process.NewExecutor(store, tasks, scheduler, instances, execCfg)
	instances.SetExecutor(executor)

	disp := dispatch.New(busClient, store, instances, executor, cfg.Server.Workers)

	healthSrv := health.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), map[string]health.ReadinessCheck{
		"storage": func() (bool, string) {
			if store.IsReady() {
				return true, "ready"
			}
			return false, "not ready"
		},
	})
	executor.SetMetrics(healthSrv)
	instances.SetMetrics(healthSrv)
	scheduler.SetMetrics(healthSrv)

	return &engine{
		cfg:       cfg,
		store:     store,
		tasks:     tasks,
		timers:    scheduler,
		bus:       busClient,
		incidents: incidents,
		instances: instances,
		executor:  executor,
		dispatch:  disp,
		health:    healthSrv,
	}, nil
}

func (e *engine) close() {
	_ = e.bus.Close()
	_ = e.store.Stop()
	_ = logger.Close()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dispatch daemon: timer scheduler, bus subscriptions, health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := e.timers.Start(ctx); err != nil {
				return fmt.Errorf("failed to start timer scheduler: %w", err)
			}
			defer e.timers.Stop()

			e.health.Start(ctx)

			logger.Info("bpmflow daemon started", logger.Int("port", e.cfg.Server.Port))
			return e.dispatch.Run(ctx)
		},
	}
}

func deployCmd() *cobra.Command {
	var key string
	var version int
	cmd := &cobra.Command{
		Use:   "deploy <bpmn-file>",
		Short: "Deploy a BPMN XML file as a process definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if key == "" {
				key = args[0]
			}
			checksum := bpmnmodel.Checksum(string(data))
			if existing, found, err := e.store.LoadDefinitionByChecksum(key, checksum); err == nil && found {
				fmt.Println("identical definition already deployed:", existing.ID)
				return nil
			}
			def := bpmnmodel.NewProcessDefinition(key, version, string(data))
			if err := e.store.SaveDefinition(def); err != nil {
				return err
			}
			fmt.Println("deployed definition:", def.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "process definition key (defaults to the file path)")
	cmd.Flags().IntVar(&version, "version", 1, "process definition version")
	return cmd
}

func createInstanceCmd() *cobra.Command {
	var definitionID, startEvent, varsJSON string
	cmd := &cobra.Command{
		Use:   "create-instance",
		Short: "Create and run a process instance synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			var native map[string]interface{}
			if varsJSON != "" {
				if err := json.Unmarshal([]byte(varsJSON), &native); err != nil {
					return fmt.Errorf("invalid --vars JSON: %w", err)
				}
			}
			vars := make([]instance.VariableInput, 0, len(native))
			for name, v := range native {
				vars = append(vars, instance.VariableInput{Name: name, Tag: inferTag(v), Value: v})
			}

			inst, err := e.instances.CreateInstance(context.Background(), definitionID, vars, startEvent)
			if err != nil {
				return err
			}
			return printJSON(inst)
		},
	}
	cmd.Flags().StringVar(&definitionID, "definition-id", "", "process definition id")
	cmd.Flags().StringVar(&startEvent, "start-event", "", "start event id (optional if the definition has exactly one)")
	cmd.Flags().StringVar(&varsJSON, "vars", "", "initial variables as a JSON object")
	_ = cmd.MarkFlagRequired("definition-id")
	return cmd
}

func suspendCmd() *cobra.Command   { return instanceActionCmd("suspend", "Suspend a running instance") }
func resumeCmd() *cobra.Command    { return instanceActionCmd("resume", "Resume a suspended instance") }
func terminateCmd() *cobra.Command { return instanceActionCmd("terminate", "Forcibly terminate an instance") }

func instanceActionCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <instance-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			switch use {
			case "suspend":
				return e.instances.SuspendInstance(args[0])
			case "resume":
				return e.instances.ResumeInstance(args[0])
			case "terminate":
				return e.instances.TerminateInstance(args[0])
			}
			return nil
		},
	}
}

func showInstanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id>",
		Short: "Show an instance's variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			vars, err := e.instances.GetInstanceVariables(args[0], "")
			if err != nil {
				return err
			}
			return printJSON(vars)
		},
	}
}

func listIncidentsCmd() *cobra.Command {
	var instanceID string
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "List recorded incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.close()

			list, err := e.incidents.List(incident.Filter{InstanceID: instanceID})
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
	cmd.Flags().StringVar(&instanceID, "instance-id", "", "filter by instance id")
	return cmd
}

func inferTag(v interface{}) bpmnmodel.ValueType {
	switch v.(type) {
	case float64:
		return bpmnmodel.TypeFloat
	case bool:
		return bpmnmodel.TypeBoolean
	case string:
		return bpmnmodel.TypeString
	default:
		return bpmnmodel.TypeJSON
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
