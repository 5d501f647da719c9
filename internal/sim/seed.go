package sim

import (
	"fmt"

	"sovereignctl/internal/model"
)

const (
	// DefaultWindow is the number of samples kept in the inference window.
	DefaultWindow = 24

	LatencyMin    = 18.0
	LatencyMax    = 28.0
	ThroughputMin = 50.0
	ThroughputMax = 75.0
)

// InitialNodes returns the fixed four-board seed: one master and three agents.
func InitialNodes() []model.Node {
	return []model.Node{
		{ID: "pi-01", Name: "Sovereign-Master", Role: model.RoleMaster, Status: model.StatusOnline, CPUUsage: 18, MemoryUsage: 32, Temp: 45, NVMeStatus: "Healthy", Uptime: "14d 2h", IP: "192.168.1.50", MeshIP: "10.99.0.1", Encrypted: true},
		{ID: "pi-02", Name: "Edge-Worker-01", Role: model.RoleAgent, Status: model.StatusOnline, CPUUsage: 72, MemoryUsage: 58, Temp: 58, NVMeStatus: "Encrypted", Uptime: "14d 2h", IP: "192.168.1.51", MeshIP: "10.99.0.2", Encrypted: true},
		{ID: "pi-03", Name: "Edge-Worker-02", Role: model.RoleAgent, Status: model.StatusOnline, CPUUsage: 68, MemoryUsage: 54, Temp: 55, NVMeStatus: "Encrypted", Uptime: "14d 2h", IP: "192.168.1.52", MeshIP: "10.99.0.3", Encrypted: true},
		{ID: "pi-04", Name: "Sense-Agent-01", Role: model.RoleAgent, Status: model.StatusOnline, CPUUsage: 10, MemoryUsage: 22, Temp: 41, NVMeStatus: "Standby", Uptime: "12d 1h", IP: "192.168.1.53", MeshIP: "10.99.0.4", Encrypted: true},
	}
}

// InitialModels returns the static model marketplace catalog.
func InitialModels() []model.LocalModel {
	return []model.LocalModel{
		{ID: "m-01", Name: "ResNet50-Edge-Quant", Version: "2.1.0", Size: "24.5MB", Hash: "sha256:7f8a...9c2d", Status: model.ModelVerified},
		{ID: "m-02", Name: "YOLOv8-Nano-Sovereign", Version: "1.4.2", Size: "6.2MB", Hash: "sha256:1a2b...3c4d", Status: model.ModelVerified},
		{ID: "m-03", Name: "Llama-3-2bit-Pi5", Version: "0.9.1-beta", Size: "1.8GB", Hash: "sha256:d4e5...f6g7", Status: model.ModelSyncing},
	}
}

// InitialRounds returns the federated-learning history.
func InitialRounds() []model.FederatedRound {
	return []model.FederatedRound{
		{Round: 1, Accuracy: 0.62, Loss: 0.84, Clients: 3, Timestamp: "10:00"},
		{Round: 2, Accuracy: 0.71, Loss: 0.65, Clients: 3, Timestamp: "11:00"},
		{Round: 3, Accuracy: 0.78, Loss: 0.42, Clients: 4, Timestamp: "12:00"},
		{Round: 4, Accuracy: 0.84, Loss: 0.31, Clients: 4, Timestamp: "13:00"},
		{Round: 5, Accuracy: 0.89, Loss: 0.22, Clients: 4, Timestamp: "14:00"},
	}
}

// InitialPeers returns the static sync peers.
func InitialPeers() []model.P2PPeer {
	return []model.P2PPeer{
		{ID: "peer-abc", Type: model.PeerSyncthing, Address: "10.99.0.2", Traffic: "2.4MB/s", Latency: "2ms"},
		{ID: "peer-xyz", Type: model.PeerIPFS, Address: "10.99.0.3", Traffic: "1.1MB/s", Latency: "4ms"},
		{ID: "peer-lmn", Type: model.PeerSyncthing, Address: "10.99.0.4", Traffic: "45KB/s", Latency: "12ms"},
	}
}

// InitialTelemetry returns the sensor reading at startup.
func InitialTelemetry() model.TelemetryReading {
	return model.TelemetryReading{
		Temp:     22.1,
		Humidity: 45.4,
		Pressure: 1012.8,
		Accel:    model.Accel{X: 0, Y: 0, Z: 1},
	}
}

// InitialMetrics generates count samples labelled "0:00" .. "(count-1):00".
func InitialMetrics(r Rand, count int) []model.InferenceMetric {
	if count < 0 {
		count = 0
	}
	out := make([]model.InferenceMetric, count)
	for i := range out {
		out[i] = model.InferenceMetric{
			Timestamp:  fmt.Sprintf("%d:00", i),
			Latency:    uniform(r, LatencyMin, LatencyMax),
			Throughput: uniform(r, ThroughputMin, ThroughputMax),
		}
	}
	return out
}
