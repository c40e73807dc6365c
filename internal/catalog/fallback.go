// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"strings"

	"hextract/cli/internal/model"
)

// FallbackCategory labels commands from the built-in catalog.
const FallbackCategory = "backup"

var fallbackCommands = []string{
	"HE AN", "HE SS", "HE FXP", "HE TTP", "HE NM", "HE AP", "HE SSR",
	"HE NN", "HE HK", "HE SA", "HE SB", "HE FXX", "HE TTM", "HE TTC",
	"HE QUE", "HE QC", "HE RM", "HE RC", "HE FP", "HE SM", "HE ST",
	"HE HELP", "HE SYS", "HE ERROR", "HE WARNING", "HE EXAMPLES",
}

// Fallback returns the built-in catalog. Priority follows position:
// the first seven are high, the next eight medium, the rest low.
func Fallback() []model.CommandSpec {
	specs := make([]model.CommandSpec, len(fallbackCommands))
	for i, cmd := range fallbackCommands {
		prio := model.PriorityLow
		switch {
		case i < 7:
			prio = model.PriorityHigh
		case i < 15:
			prio = model.PriorityMedium
		}
		specs[i] = model.CommandSpec{Command: cmd, Category: FallbackCategory, Priority: prio}
	}
	return specs
}

var highValue = map[string]struct{}{
	"HE AN": {}, "HE SS": {}, "HE FXP": {}, "HE TTP": {}, "HE NM": {},
}

// DerivePriority assigns a tier to a command that has no explicit details.
func DerivePriority(cmd string) model.Priority {
	cmd = strings.ToUpper(strings.TrimSpace(cmd))
	if _, ok := highValue[cmd]; ok {
		return model.PriorityHigh
	}
	if strings.HasPrefix(cmd, "HE HELP") || strings.HasPrefix(cmd, "HE SYS") {
		return model.PriorityLow
	}
	return model.PriorityMedium
}
