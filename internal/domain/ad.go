package domain

import (
	"fmt"
	"strings"
	"time"
)

type BeaconKind string

const (
	BeaconRender BeaconKind = "render"
	BeaconShow   BeaconKind = "show"
	BeaconReward BeaconKind = "reward"
)

var requiredBeacons = []BeaconKind{BeaconRender, BeaconShow, BeaconReward}

type AdDescriptor struct {
	Title       string
	Description string
	Advertiser  string
	CampaignID  string
	BannerID    string
	Duration    time.Duration
	Beacons     map[BeaconKind]string
}

func (d AdDescriptor) Validate() error {
	missing := make([]string, 0, len(requiredBeacons))
	for _, kind := range requiredBeacons {
		if strings.TrimSpace(d.Beacons[kind]) == "" {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingBeacon, strings.Join(missing, ", "))
	}

	return nil
}

func (d AdDescriptor) Beacon(kind BeaconKind) string {
	return d.Beacons[kind]
}

// DisplayTitle never returns an empty string so log lines stay readable.
func (d AdDescriptor) DisplayTitle() string {
	if strings.TrimSpace(d.Title) == "" {
		return "Unknown"
	}
	return d.Title
}
