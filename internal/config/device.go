package config

import "github.com/berrythewa/clipvault/pkg/utils"

func newDeviceID() string {
	return utils.NewID()
}
