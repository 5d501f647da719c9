package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sovereignctl/internal/model"
)

func TestLoadCatalog_MissingFile_ReturnsBuiltin(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	cat, err := LoadCatalog(filepath.Join(tmp, "catalog.yaml"))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(cat.Nodes) != 4 || len(cat.Models) != 3 || len(cat.Rounds) != 5 || len(cat.Peers) != 3 {
		t.Fatalf("catalog=%+v", cat)
	}
}

func TestSaveCatalog_RoundTrip(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "catalog.yaml")

	in := &Catalog{Nodes: []model.Node{
		{ID: "edge-a", Name: "A", Role: model.RoleMaster, CPUUsage: 5, Temp: 40, MeshIP: "10.99.0.9"},
		{ID: "edge-b", Name: "B", Role: model.RoleAgent, CPUUsage: 6, Temp: 41},
	}}
	if err := SaveCatalog(path, in); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "mesh_ip: 10.99.0.9") {
		t.Fatalf("yaml keys:\n%s", data)
	}

	out, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(out.Nodes) != 2 || out.Nodes[0].MeshIP != "10.99.0.9" {
		t.Fatalf("nodes=%+v", out.Nodes)
	}
	if len(out.Models) != 3 {
		t.Fatalf("models not filled from builtin: %d", len(out.Models))
	}
	if out.UpdatedAt.IsZero() {
		t.Fatalf("updated_at not set")
	}
}

func TestLoadCatalog_RejectsTwoMasters(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "catalog.yaml")
	data := `
nodes:
  - {id: a, role: Master, cpu_usage: 1, temp: 40}
  - {id: b, role: Master, cpu_usage: 1, temp: 40}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil || !strings.Contains(err.Error(), "exactly one") {
		t.Fatalf("err=%v", err)
	}
}

func TestValidate_TempRange(t *testing.T) {
	t.Parallel()

	cat := &Catalog{Nodes: []model.Node{{ID: "a", Role: model.RoleMaster, Temp: 90}}}
	if err := cat.Validate(); err == nil {
		t.Fatalf("expected error")
	}
}
