// FilePath: internal/gateway/gateway.rules.go
package gateway

import "github.com/eval-printer/SmartHome-Demo/internal/models"

// Rule names used in logs, metrics and the command log.
const (
	RuleGas       = "gas"
	RuleMotion    = "motion"
	RuleHeartRate = "heartRate"
)

// Command is an actuator update a rule wants sent.
type Command struct {
	Rule  string
	Slot  string
	Delta models.Representation
}

// EvaluateGas switches the fan on when density exceeds the threshold and off when it
// falls back to or below it. The fan shadow suppresses repeated commands.
func EvaluateGas(cfg models.RuleConfig, density int, fanUsable, fanOn bool) (Command, bool) {
	if !cfg.KitchenMonitor || !fanUsable {
		return Command{}, false
	}
	switch {
	case density > cfg.Density && !fanOn:
		return fanCommand(models.FanOn), true
	case density <= cfg.Density && fanOn:
		return fanCommand(models.FanOff), true
	}
	return Command{}, false
}

// EvaluateMotion turns the LED blue on motion. Unlike the other rules it has no
// enable flag in the rule configuration.
func EvaluateMotion(motion, ledUsable bool) (Command, bool) {
	if !motion || !ledUsable {
		return Command{}, false
	}
	return ledCommand(RuleMotion, models.ColorBlue), true
}

// EvaluateHeartRate colors the LED red at or above the heart rate threshold and green below.
func EvaluateHeartRate(cfg models.RuleConfig, heartRate int, ledUsable bool) (Command, bool) {
	if !cfg.CrazyJumping || !ledUsable {
		return Command{}, false
	}
	color := models.ColorGreen
	if heartRate >= cfg.HeartRate {
		color = models.ColorRed
	}
	return ledCommand(RuleHeartRate, color), true
}

func fanCommand(state string) Command {
	return Command{
		Rule:  RuleGas,
		Slot:  models.SlotFan,
		Delta: models.Representation{models.AttrFanState: state},
	}
}

func ledCommand(rule string, color int) Command {
	return Command{
		Rule:  rule,
		Slot:  models.SlotLed,
		Delta: models.Representation{models.AttrLedColor: color},
	}
}
