package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"sovereignctl/internal/model"
)

const promptHeader = "Perform a SOVEREIGN ANALYSIS of the following Raspberry Pi 5 Edge Cluster:\n"

const promptFooter = `
The user is running an offline-first, zero-cloud platform. Provide technical optimization recommendations focusing on:
1. Federated Learning efficiency and client contribution balance.
2. NVMe thermal throttling vs. Model Marketplace sync speeds.
3. P2P Mesh network (WireGuard) stability.
4. Hardware health (CPU/Temp) and energy consumption.

Ensure suggestions are purely local (no cloud APIs). Keep response technical and use Markdown.
`

// BuildPrompt renders the snapshot as two-space indented JSON inside the
// fixed audit instructions.
func BuildPrompt(snap model.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	var b strings.Builder
	b.Grow(len(promptHeader) + len(data) + len(promptFooter))
	b.WriteString(promptHeader)
	b.Write(data)
	b.WriteString("\n")
	b.WriteString(promptFooter)
	return b.String(), nil
}
