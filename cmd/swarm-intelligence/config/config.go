package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/picogrid/swarm-simulations/cmd/swarm-intelligence/core"
)

// SimulationConfig holds the complete simulation configuration
type SimulationConfig struct {
	Simulation       SimulationSettings     `yaml:"simulation"`
	Swarm            SwarmConfig            `yaml:"swarm"`
	Formation        FormationConfig        `yaml:"formation"`
	FormationControl FormationControlConfig `yaml:"formation_control"`
	PSO              PSOConfig              `yaml:"pso"`
	GWO              GWOConfig              `yaml:"gwo"`
	ACO              ACOConfig              `yaml:"aco"`
	Network          NetworkConfig          `yaml:"network"`
	Demo             DemoConfig             `yaml:"demo"`
	Transport        TransportConfig        `yaml:"transport"`
	Viewer           ViewerConfig           `yaml:"viewer"`
	Logging          LoggingConfig          `yaml:"logging"`
}

// SimulationSettings holds basic simulation settings
type SimulationSettings struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	// Duration caps wall-clock run time. Zero runs until stopped.
	Duration  time.Duration `yaml:"duration"`
	TimeDelta float64       `yaml:"time_delta"`
	Algorithm string        `yaml:"algorithm"` // "pso", "gwo", "aco"
	Seed      int64         `yaml:"seed"`      // 0 seeds from the clock
	DemoMode  bool          `yaml:"demo_mode"`
}

// LeaderSpeeds are the approach speeds of the fixed formation leaders
type LeaderSpeeds struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Delta float64 `yaml:"delta"`
}

// SwarmConfig describes the physical drone swarm
type SwarmConfig struct {
	DroneCount       int           `yaml:"drone_count"`
	Dimensions       int           `yaml:"dimensions"` // 2 or 3
	MaxSpeed         float64       `yaml:"max_speed"`
	Center           core.Vector3D `yaml:"center"`
	Target           core.Vector3D `yaml:"target"`
	CenterSpeed      float64       `yaml:"center_speed"`
	ArrivalThreshold float64       `yaml:"arrival_threshold"`
	SpawnRadius      float64       `yaml:"spawn_radius"`
	TrailLength      int           `yaml:"trail_length"`
	BatteryDrain     int           `yaml:"battery_drain_interval"` // ticks per 1% battery, 0 disables
	LeaderSpeeds     LeaderSpeeds  `yaml:"leader_speeds"`
}

// FormationConfig selects the slot pattern and its geometry
type FormationConfig struct {
	Type         string  `yaml:"type"` // "v_formation", "circle", "line", "grid", "random"
	VSpacing     float64 `yaml:"v_spacing"`
	CircleRadius float64 `yaml:"circle_radius"`
	LineSpacing  float64 `yaml:"line_spacing"`
	GridSpacing  float64 `yaml:"grid_spacing"`
	RandomExtent float64 `yaml:"random_extent"`
}

// FormationControlConfig tunes how drones chase their slots
type FormationControlConfig struct {
	Inertia          float64 `yaml:"inertia"`
	Cognitive        float64 `yaml:"cognitive"`
	Social           float64 `yaml:"social"`
	GWOMaxIterations int     `yaml:"gwo_max_iterations"`
	FollowGain       float64 `yaml:"follow_gain"`
}

// PSOConfig configures the particle swarm optimizer
type PSOConfig struct {
	ParticleCount int     `yaml:"particle_count"`
	Inertia       float64 `yaml:"inertia"`
	Cognitive     float64 `yaml:"cognitive"`
	Social        float64 `yaml:"social"`
	MaxVelocity   float64 `yaml:"max_velocity"`
	Bounds        float64 `yaml:"bounds"`
	HistoryLength int     `yaml:"history_length"`
}

// GWOConfig configures the grey wolf optimizer
type GWOConfig struct {
	WolfCount      int     `yaml:"wolf_count"`
	MaxIterations  int     `yaml:"max_iterations"`
	Bounds         float64 `yaml:"bounds"`
	HistoryLength  int     `yaml:"history_length"`
	ObjectiveScale float64 `yaml:"objective_scale"`
}

// ACOConfig configures the ant colony
type ACOConfig struct {
	AntCount        int             `yaml:"ant_count"`
	Start           core.Vector3D   `yaml:"start"`
	Goal            core.Vector3D   `yaml:"goal"`
	Obstacles       []core.Obstacle `yaml:"obstacles"`
	EvaporationRate float64         `yaml:"evaporation_rate"`
	Alpha           float64         `yaml:"alpha"`
	Beta            float64         `yaml:"beta"`
	StepLength      float64         `yaml:"step_length"`
	GoalRadius      float64         `yaml:"goal_radius"`
	SafetyMargin    float64         `yaml:"safety_margin"`
	MinStrength     float64         `yaml:"min_strength"`
	MaxTrails       int             `yaml:"max_trails"`
	EvictBatch      int             `yaml:"evict_batch"`
	MaxPathPoints   int             `yaml:"max_path_points"`
	PheromoneGuided bool            `yaml:"pheromone_guided"`
	Candidates      int             `yaml:"candidates"`
	SenseRadius     float64         `yaml:"sense_radius"`
}

// NetworkConfig configures the communication model
type NetworkConfig struct {
	CommRange      float64       `yaml:"comm_range"`
	LatencyPerUnit time.Duration `yaml:"latency_per_unit"`
}

// DemoConfig holds the tick thresholds of the demo scenario
type DemoConfig struct {
	FormationPeriod int `yaml:"formation_period"`
	ShowcaseTicks   int `yaml:"showcase_ticks"`
	PhaseTicks      int `yaml:"phase_ticks"`
	ScaleStartCount int `yaml:"scale_start_count"`
	ScaleIncrement  int `yaml:"scale_increment"`
	ScaleInterval   int `yaml:"scale_interval"`
	ScaleMaxCount   int `yaml:"scale_max_count"`
	ScaleTicks      int `yaml:"scale_ticks"`
	RestartCount    int `yaml:"restart_count"`
}

// TransportConfig configures the NATS telemetry link
type TransportConfig struct {
	Enabled        bool          `yaml:"enabled"`
	NATSURL        string        `yaml:"nats_url"`
	Embedded       bool          `yaml:"embedded"`
	EmbeddedPort   int           `yaml:"embedded_port"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	BatchSize      int           `yaml:"batch_size"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	ApplyTelemetry bool          `yaml:"apply_telemetry"`
}

// ViewerConfig configures the websocket snapshot stream
type ViewerConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddr    string `yaml:"listen_addr"`
	SnapshotEvery int    `yaml:"snapshot_every"` // ticks
}

// LoggingConfig defines logging and reporting settings
type LoggingConfig struct {
	ConsoleLevel    string `yaml:"console_level"` // "debug", "info", "warn", "error"
	MetricsInterval int    `yaml:"metrics_interval"`
	EventBufferSize int    `yaml:"event_buffer_size"`
	MetricsHistory  int    `yaml:"metrics_history"`
	ReportDir       string `yaml:"report_dir"`
	ReportFormat    string `yaml:"report_format"` // "json", "markdown", "none"
	ReportDetail    string `yaml:"report_detail"` // "summary", "full"
}

// Validate checks if the configuration is valid
func (c *SimulationConfig) Validate() error {
	if c.Simulation.Name == "" {
		return fmt.Errorf("simulation name is required")
	}

	if c.Simulation.UpdateInterval <= 0 {
		return fmt.Errorf("update interval must be positive")
	}

	if c.Simulation.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}

	if c.Simulation.TimeDelta <= 0 {
		return fmt.Errorf("time delta must be positive")
	}

	if _, err := core.ParseAlgorithm(c.Simulation.Algorithm); err != nil {
		return err
	}

	if c.Swarm.DroneCount < 0 {
		return fmt.Errorf("drone count cannot be negative")
	}

	if c.Swarm.Dimensions != 2 && c.Swarm.Dimensions != 3 {
		return fmt.Errorf("dimensions must be 2 or 3, got %d", c.Swarm.Dimensions)
	}

	if c.Swarm.MaxSpeed <= 0 {
		return fmt.Errorf("max speed must be positive")
	}

	if c.Swarm.CenterSpeed < 0 {
		return fmt.Errorf("center speed cannot be negative")
	}

	if c.Swarm.ArrivalThreshold <= 0 {
		return fmt.Errorf("arrival threshold must be positive")
	}

	if c.Swarm.SpawnRadius < 0 {
		return fmt.Errorf("spawn radius cannot be negative")
	}

	if c.Swarm.TrailLength < 0 {
		return fmt.Errorf("trail length cannot be negative")
	}

	if c.Swarm.BatteryDrain < 0 {
		return fmt.Errorf("battery drain interval cannot be negative")
	}

	ls := c.Swarm.LeaderSpeeds
	if ls.Alpha <= 0 || ls.Beta <= 0 || ls.Delta <= 0 {
		return fmt.Errorf("leader speeds must be positive")
	}

	if _, err := core.ParseFormation(c.Formation.Type); err != nil {
		return err
	}

	if err := c.FormationParams().Validate(); err != nil {
		return err
	}

	fc := c.FormationControl
	if fc.Inertia < 0 || fc.Inertia > 1 {
		return fmt.Errorf("formation control inertia must be between 0.0 and 1.0")
	}
	if fc.Cognitive < 0 || fc.Social < 0 {
		return fmt.Errorf("formation control coefficients cannot be negative")
	}
	if fc.GWOMaxIterations <= 0 {
		return fmt.Errorf("formation control gwo iterations must be positive")
	}
	if fc.FollowGain <= 0 || fc.FollowGain > 1 {
		return fmt.Errorf("follow gain must be within (0,1]")
	}

	if c.PSO.ParticleCount < 0 || c.GWO.WolfCount < 0 || c.ACO.AntCount < 0 {
		return fmt.Errorf("particle, wolf and ant counts cannot be negative")
	}

	if err := c.PSOParams().Validate(); err != nil {
		return err
	}

	if err := c.GWOParams().Validate(); err != nil {
		return err
	}

	if c.GWO.ObjectiveScale <= 0 {
		return fmt.Errorf("gwo objective scale must be positive")
	}

	if err := c.ACOParams().Validate(); err != nil {
		return err
	}

	if err := c.TopologyParams().Validate(); err != nil {
		return err
	}

	if err := c.Demo.validate(); err != nil {
		return err
	}

	if c.Transport.Enabled {
		if c.Transport.NATSURL == "" && !c.Transport.Embedded {
			return fmt.Errorf("transport requires a nats url or an embedded server")
		}
		if c.Transport.SubjectPrefix == "" {
			return fmt.Errorf("transport subject prefix is required")
		}
		if c.Transport.BatchSize <= 0 {
			return fmt.Errorf("transport batch size must be positive")
		}
		if c.Transport.FlushInterval <= 0 {
			return fmt.Errorf("transport flush interval must be positive")
		}
		if c.Transport.MaxConcurrent <= 0 {
			return fmt.Errorf("transport max concurrent must be positive")
		}
	}

	if c.Viewer.Enabled {
		if c.Viewer.ListenAddr == "" {
			return fmt.Errorf("viewer listen address is required")
		}
		if c.Viewer.SnapshotEvery <= 0 {
			return fmt.Errorf("viewer snapshot interval must be positive")
		}
	}

	if c.Logging.MetricsInterval < 0 || c.Logging.EventBufferSize < 0 || c.Logging.MetricsHistory < 0 {
		return fmt.Errorf("logging buffer sizes and intervals cannot be negative")
	}

	switch c.Logging.ReportFormat {
	case "", "none":
	case "json", "markdown":
		if c.Logging.ReportDir == "" {
			return fmt.Errorf("report directory is required when reports are enabled")
		}
	default:
		return fmt.Errorf("invalid report format: %s", c.Logging.ReportFormat)
	}

	if c.Logging.ReportDetail != "" && c.Logging.ReportDetail != "summary" && c.Logging.ReportDetail != "full" {
		return fmt.Errorf("invalid report detail: %s", c.Logging.ReportDetail)
	}

	return nil
}

func (d DemoConfig) validate() error {
	if d.FormationPeriod <= 0 || d.ShowcaseTicks <= 0 || d.PhaseTicks <= 0 {
		return fmt.Errorf("demo formation period, showcase ticks and phase ticks must be positive")
	}
	if d.ScaleInterval <= 0 || d.ScaleTicks <= 0 {
		return fmt.Errorf("demo scale interval and scale ticks must be positive")
	}
	if d.ScaleStartCount < 0 || d.ScaleIncrement < 0 || d.RestartCount < 0 {
		return fmt.Errorf("demo drone counts cannot be negative")
	}
	if d.ScaleMaxCount < d.ScaleStartCount {
		return fmt.Errorf("demo scale max count must be at least the start count")
	}
	return nil
}

// AlgorithmType returns the parsed optimizer selection
func (c *SimulationConfig) AlgorithmType() core.Algorithm {
	alg, _ := core.ParseAlgorithm(c.Simulation.Algorithm)
	return alg
}

// FormationType returns the parsed formation selection
func (c *SimulationConfig) FormationType() core.FormationType {
	f, _ := core.ParseFormation(c.Formation.Type)
	return f
}

// FormationParams returns the formation geometry
func (c *SimulationConfig) FormationParams() core.FormationParams {
	return core.FormationParams{
		VSpacing:     c.Formation.VSpacing,
		CircleRadius: c.Formation.CircleRadius,
		LineSpacing:  c.Formation.LineSpacing,
		GridSpacing:  c.Formation.GridSpacing,
		RandomExtent: c.Formation.RandomExtent,
	}
}

// PSOParams returns the optimizer parameters
func (c *SimulationConfig) PSOParams() core.PSOParams {
	return core.PSOParams{
		Inertia:       c.PSO.Inertia,
		Cognitive:     c.PSO.Cognitive,
		Social:        c.PSO.Social,
		MaxVelocity:   c.PSO.MaxVelocity,
		Bounds:        c.PSO.Bounds,
		HistoryLength: c.PSO.HistoryLength,
		Dimensions:    c.Swarm.Dimensions,
	}
}

// GWOParams returns the optimizer parameters
func (c *SimulationConfig) GWOParams() core.GWOParams {
	return core.GWOParams{
		MaxIterations: c.GWO.MaxIterations,
		Bounds:        c.GWO.Bounds,
		HistoryLength: c.GWO.HistoryLength,
		Dimensions:    c.Swarm.Dimensions,
	}
}

// ACOParams returns the colony parameters on top of the standard constants
func (c *SimulationConfig) ACOParams() core.ACOParams {
	p := core.DefaultACOParams()
	p.Start = c.ACO.Start
	p.Goal = c.ACO.Goal
	p.Obstacles = append([]core.Obstacle(nil), c.ACO.Obstacles...)
	p.EvaporationRate = c.ACO.EvaporationRate
	p.Alpha = c.ACO.Alpha
	p.Beta = c.ACO.Beta
	p.StepLength = c.ACO.StepLength
	p.GoalRadius = c.ACO.GoalRadius
	p.SafetyMargin = c.ACO.SafetyMargin
	p.MinStrength = c.ACO.MinStrength
	p.MaxTrails = c.ACO.MaxTrails
	p.EvictBatch = c.ACO.EvictBatch
	p.MaxPathPoints = c.ACO.MaxPathPoints
	p.PheromoneGuided = c.ACO.PheromoneGuided
	p.Candidates = c.ACO.Candidates
	p.SenseRadius = c.ACO.SenseRadius
	return p
}

// TopologyParams returns the communication model
func (c *SimulationConfig) TopologyParams() core.TopologyParams {
	return core.TopologyParams{
		CommRange:      c.Network.CommRange,
		LatencyPerUnit: c.Network.LatencyPerUnit,
	}
}

// Clone returns a deep copy of the configuration
func (c *SimulationConfig) Clone() *SimulationConfig {
	out := *c
	out.ACO.Obstacles = append([]core.Obstacle(nil), c.ACO.Obstacles...)
	return &out
}

// String returns a human-readable representation of the configuration
func (c *SimulationConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, `Simulation Configuration:
  Name: %s
  Description: %s
  Update Interval: %v
  Duration: %v
  Algorithm: %s
  Demo Mode: %t

Swarm:
  Drones: %d
  Dimensions: %d
  Max Speed: %.1f
  Formation: %s
  Center: (%.1f, %.1f, %.1f)
  Target: (%.1f, %.1f, %.1f)

Optimizers:
  PSO Particles: %d (w=%.2f c1=%.2f c2=%.2f)
  GWO Wolves: %d (max iterations %d)
  ACO Ants: %d (evaporation %.2f, pheromone guided %t)

Network:
  Comm Range: %.1f
  Latency Per Unit: %v

Transport:
  Enabled: %t
  NATS URL: %s
  Embedded: %t

Viewer:
  Enabled: %t
  Listen: %s

Logging:
  Console Level: %s`,
		c.Simulation.Name,
		c.Simulation.Description,
		c.Simulation.UpdateInterval,
		c.Simulation.Duration,
		c.Simulation.Algorithm,
		c.Simulation.DemoMode,
		c.Swarm.DroneCount,
		c.Swarm.Dimensions,
		c.Swarm.MaxSpeed,
		c.Formation.Type,
		c.Swarm.Center.X, c.Swarm.Center.Y, c.Swarm.Center.Z,
		c.Swarm.Target.X, c.Swarm.Target.Y, c.Swarm.Target.Z,
		c.PSO.ParticleCount, c.PSO.Inertia, c.PSO.Cognitive, c.PSO.Social,
		c.GWO.WolfCount, c.GWO.MaxIterations,
		c.ACO.AntCount, c.ACO.EvaporationRate, c.ACO.PheromoneGuided,
		c.Network.CommRange,
		c.Network.LatencyPerUnit,
		c.Transport.Enabled,
		c.Transport.NATSURL,
		c.Transport.Embedded,
		c.Viewer.Enabled,
		c.Viewer.ListenAddr,
		c.Logging.ConsoleLevel,
	)
	return b.String()
}

// GetDefaultConfig returns the standard swarm-intelligence configuration
func GetDefaultConfig() *SimulationConfig {
	aco := core.DefaultACOParams()
	return &SimulationConfig{
		Simulation: SimulationSettings{
			Name:           "swarm-intelligence",
			Description:    "PSO, GWO and ACO swarm coordination with formation control",
			UpdateInterval: 100 * time.Millisecond,
			Duration:       0,
			TimeDelta:      0.1,
			Algorithm:      "pso",
			Seed:           0,
			DemoMode:       false,
		},

		Swarm: SwarmConfig{
			DroneCount:       15,
			Dimensions:       2,
			MaxSpeed:         5.0,
			Center:           core.Vector3D{X: 0, Y: 0, Z: 10},
			Target:           core.Vector3D{X: 0, Y: 0, Z: 10},
			CenterSpeed:      0.5,
			ArrivalThreshold: 1.0,
			SpawnRadius:      5.0,
			TrailLength:      50,
			BatteryDrain:     100,
			LeaderSpeeds: LeaderSpeeds{
				Alpha: 3.0,
				Beta:  2.5,
				Delta: 2.0,
			},
		},

		Formation: FormationConfig{
			Type:         "circle",
			VSpacing:     8.0,
			CircleRadius: 15.0,
			LineSpacing:  10.0,
			GridSpacing:  10.0,
			RandomExtent: 100.0,
		},

		FormationControl: FormationControlConfig{
			Inertia:          0.7,
			Cognitive:        1.5,
			Social:           1.5,
			GWOMaxIterations: 500,
			FollowGain:       0.5,
		},

		PSO: PSOConfig{
			ParticleCount: 30,
			Inertia:       0.7,
			Cognitive:     2.0,
			Social:        2.0,
			MaxVelocity:   5.0,
			Bounds:        100.0,
			HistoryLength: 200,
		},

		GWO: GWOConfig{
			WolfCount:      20,
			MaxIterations:  500,
			Bounds:         100.0,
			HistoryLength:  200,
			ObjectiveScale: 20.0,
		},

		ACO: ACOConfig{
			AntCount:        20,
			Start:           aco.Start,
			Goal:            aco.Goal,
			Obstacles:       aco.Obstacles,
			EvaporationRate: aco.EvaporationRate,
			Alpha:           aco.Alpha,
			Beta:            aco.Beta,
			StepLength:      aco.StepLength,
			GoalRadius:      aco.GoalRadius,
			SafetyMargin:    aco.SafetyMargin,
			MinStrength:     aco.MinStrength,
			MaxTrails:       aco.MaxTrails,
			EvictBatch:      aco.EvictBatch,
			MaxPathPoints:   aco.MaxPathPoints,
			PheromoneGuided: false,
			Candidates:      aco.Candidates,
			SenseRadius:     aco.SenseRadius,
		},

		Network: NetworkConfig{
			CommRange:      80.0,
			LatencyPerUnit: 500 * time.Microsecond,
		},

		Demo: DemoConfig{
			FormationPeriod: 200,
			ShowcaseTicks:   1000,
			PhaseTicks:      600,
			ScaleStartCount: 50,
			ScaleIncrement:  10,
			ScaleInterval:   100,
			ScaleMaxCount:   100,
			ScaleTicks:      500,
			RestartCount:    15,
		},

		Transport: TransportConfig{
			Enabled:        false,
			NATSURL:        "nats://127.0.0.1:4222",
			Embedded:       false,
			EmbeddedPort:   -1,
			SubjectPrefix:  "swarm",
			BatchSize:      50,
			FlushInterval:  200 * time.Millisecond,
			MaxConcurrent:  4,
			ApplyTelemetry: true,
		},

		Viewer: ViewerConfig{
			Enabled:       false,
			ListenAddr:    "127.0.0.1:8090",
			SnapshotEvery: 1,
		},

		Logging: LoggingConfig{
			ConsoleLevel:    "info",
			MetricsInterval: 50,
			EventBufferSize: 1000,
			MetricsHistory:  200,
			ReportDir:       "./reports",
			ReportFormat:    "none",
			ReportDetail:    "summary",
		},
	}
}
