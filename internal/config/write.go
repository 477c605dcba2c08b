package config

import (
	"os"

	"go.yaml.in/yaml/v3"
)

// starter is the YAML shape written by `routegen init`. Duration fields are
// written as strings so the file round-trips through viper's duration hook.
type starter struct {
	Project struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"project"`
	Source struct {
		Dir        string   `yaml:"dir"`
		Extensions []string `yaml:"extensions"`
		Exclude    []string `yaml:"exclude"`
	} `yaml:"source"`
	Output struct {
		RoutesDir string `yaml:"routes_dir"`
		ClientDir string `yaml:"client_dir"`
		DocsPath  string `yaml:"docs_path"`
	} `yaml:"output"`
	Scan struct {
		Debounce              string  `yaml:"debounce"`
		Staleness             string  `yaml:"staleness"`
		MaxFilesPerScan       int     `yaml:"max_files_per_scan"`
		FullScanDirtyFraction float64 `yaml:"full_scan_dirty_fraction"`
	} `yaml:"scan"`
}

// WriteConfig serializes the given Config to YAML and writes it to path.
func WriteConfig(cfg *Config, path string) error {
	var s starter
	s.Project.Name = cfg.Project.Name
	s.Project.Version = cfg.Project.Version
	s.Source.Dir = cfg.Source.Dir
	s.Source.Extensions = cfg.Source.Extensions
	s.Source.Exclude = cfg.Source.Exclude
	s.Output.RoutesDir = cfg.Output.RoutesDir
	s.Output.ClientDir = cfg.Output.ClientDir
	s.Output.DocsPath = cfg.Output.DocsPath
	s.Scan.Debounce = cfg.Scan.Debounce.String()
	s.Scan.Staleness = cfg.Scan.Staleness.String()
	s.Scan.MaxFilesPerScan = cfg.Scan.MaxFilesPerScan
	s.Scan.FullScanDirtyFraction = cfg.Scan.FullScanDirtyFraction

	data, err := yaml.Marshal(&s)
	if err != nil {
		return err
	}
	content := "# routegen configuration\n" + string(data)
	return os.WriteFile(path, []byte(content), 0644)
}
