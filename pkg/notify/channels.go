package notify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Channel IDs. Severity channels receive routed alerts; the service
// channel carries the agent's own presence notices.
const (
	ChannelCritical = "critical_alerts"
	ChannelWarning  = "warning_alerts"
	ChannelInfo     = "info_alerts"
	ChannelService  = "background_service"
)

// Channel describes one delivery channel.
type Channel struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Importance orders channels for sinks that support it: 5 is
	// urgent, 1 is minimal.
	Importance int `yaml:"importance"`
}

// DefaultChannels returns the built-in channel set used when no
// channel file is configured.
func DefaultChannels() []Channel {
	return []Channel{
		{ID: ChannelCritical, Name: "Critical Alerts", Description: "Sites down or critical failures", Importance: 5},
		{ID: ChannelWarning, Name: "Warnings", Description: "Degraded sites and expiring certificates", Importance: 4},
		{ID: ChannelInfo, Name: "Info", Description: "Informational updates", Importance: 3},
		{ID: ChannelService, Name: "Agent Status", Description: "Agent presence and housekeeping", Importance: 1},
	}
}

type channelFile struct {
	Channels []Channel `yaml:"channels"`
}

// LoadChannels reads channel definitions from a YAML file. Channels in
// the file override the built-in ones by ID; unknown IDs are rejected
// so a typo cannot silently swallow a severity class.
func LoadChannels(path string) ([]Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel file: %w", err)
	}

	var f channelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse channel file: %w", err)
	}

	known := map[string]int{}
	channels := DefaultChannels()
	for i, ch := range channels {
		known[ch.ID] = i
	}
	for _, ch := range f.Channels {
		i, ok := known[ch.ID]
		if !ok {
			return nil, fmt.Errorf("unknown channel id %q", ch.ID)
		}
		if ch.Name != "" {
			channels[i].Name = ch.Name
		}
		if ch.Description != "" {
			channels[i].Description = ch.Description
		}
		if ch.Importance != 0 {
			channels[i].Importance = ch.Importance
		}
	}
	return channels, nil
}
