package model

import "time"

// Node roles.
const (
	RoleMaster = "Master"
	RoleAgent  = "Agent"
)

// Node statuses.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
	StatusWarning = "Warning"
)

// Model catalog statuses.
const (
	ModelVerified = "Verified"
	ModelSyncing  = "Syncing"
	ModelCorrupt  = "Corrupt"
)

// Peer transports.
const (
	PeerSyncthing = "Syncthing"
	PeerIPFS      = "IPFS"
)

// Node represents one simulated board in the edge cluster.
type Node struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Role        string  `json:"role" yaml:"role"`
	Status      string  `json:"status" yaml:"status"`
	CPUUsage    float64 `json:"cpuUsage" yaml:"cpu_usage"`
	MemoryUsage float64 `json:"memoryUsage" yaml:"memory_usage"`
	Temp        float64 `json:"temp" yaml:"temp"`
	NVMeStatus  string  `json:"nvmeStatus" yaml:"nvme_status"`
	Uptime      string  `json:"uptime" yaml:"uptime"`
	IP          string  `json:"ip" yaml:"ip"`
	MeshIP      string  `json:"meshIp" yaml:"mesh_ip"`
	Encrypted   bool    `json:"encrypted" yaml:"encrypted"`
}

// InferenceMetric is a single point in the inference sliding window.
type InferenceMetric struct {
	Timestamp  string  `json:"timestamp"`
	Latency    float64 `json:"latency"`
	Throughput float64 `json:"throughput"`
}

// LocalModel is a static entry of the local model marketplace.
type LocalModel struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Size    string `json:"size" yaml:"size"`
	Hash    string `json:"hash" yaml:"hash"`
	Status  string `json:"status" yaml:"status"`
}

// FederatedRound is a historical federated-learning round.
type FederatedRound struct {
	Round     int     `json:"round" yaml:"round"`
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Loss      float64 `json:"loss" yaml:"loss"`
	Clients   int     `json:"clients" yaml:"clients"`
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
}

// P2PPeer is a static sync peer.
type P2PPeer struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Address string `json:"address" yaml:"address"`
	Traffic string `json:"traffic" yaml:"traffic"`
	Latency string `json:"latency" yaml:"latency"`
}

// Accel is a 3-axis acceleration vector in g.
type Accel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TelemetryReading holds the environmental sensor values.
type TelemetryReading struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
	Accel    Accel   `json:"accel"`
}

// Snapshot is the bundle sent for analysis. Field names match what the
// dashboard has always serialized.
type Snapshot struct {
	Nodes     []Node            `json:"nodes"`
	Metrics   []InferenceMetric `json:"metrics"`
	FedRounds []FederatedRound  `json:"fedRounds"`
	Models    []LocalModel      `json:"models"`
	Peers     []P2PPeer         `json:"peers"`
}

// LogEntry is one line of the dashboard event log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// State is a full copy of the dashboard state handed to renderers.
type State struct {
	Nodes     []Node            `json:"nodes"`
	Metrics   []InferenceMetric `json:"metrics"`
	Telemetry TelemetryReading  `json:"telemetry"`
	Models    []LocalModel      `json:"models"`
	FedRounds []FederatedRound  `json:"fedRounds"`
	Peers     []P2PPeer         `json:"peers"`
	Logs      []LogEntry        `json:"logs"`
	Insights  string            `json:"insights"`
	Analyzing bool              `json:"analyzing"`
	LastRunID string            `json:"lastRunId,omitempty"`
	Ticks     uint64            `json:"ticks"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Snapshot extracts the analysis bundle from a state copy.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Nodes:     s.Nodes,
		Metrics:   s.Metrics,
		FedRounds: s.FedRounds,
		Models:    s.Models,
		Peers:     s.Peers,
	}
}
