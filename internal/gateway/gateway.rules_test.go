package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

func kitchenRules() models.RuleConfig {
	cfg := models.DefaultRuleConfig()
	cfg.KitchenMonitor = true
	return cfg
}

func TestGasRuleSequence(t *testing.T) {
	cfg := kitchenRules()
	fanOn := false
	var issued []string

	for _, density := range []int{80, 75, 72, 60} {
		cmd, ok := EvaluateGas(cfg, density, true, fanOn)
		if !ok {
			continue
		}
		state, _ := cmd.Delta.String(models.AttrFanState)
		issued = append(issued, state)
		// The acknowledgement updates the shadow.
		fanOn = state == models.FanOn
	}

	assert.Equal(t, []string{models.FanOn, models.FanOff}, issued)
}

func TestGasRuleThresholdIsInclusiveOff(t *testing.T) {
	cfg := kitchenRules()

	_, ok := EvaluateGas(cfg, 70, true, false)
	assert.False(t, ok, "density equal to the threshold does not switch the fan on")

	cmd, ok := EvaluateGas(cfg, 70, true, true)
	assert.True(t, ok)
	assert.Equal(t, models.Representation{models.AttrFanState: models.FanOff}, cmd.Delta)
}

func TestGasRuleGates(t *testing.T) {
	cfg := models.DefaultRuleConfig()
	_, ok := EvaluateGas(cfg, 200, true, false)
	assert.False(t, ok, "kitchen monitor disabled")

	_, ok = EvaluateGas(kitchenRules(), 200, false, false)
	assert.False(t, ok, "fan not usable")
}

func TestHeartRateRule(t *testing.T) {
	cfg := models.DefaultRuleConfig()
	cfg.CrazyJumping = true

	cmd, ok := EvaluateHeartRate(cfg, 100, true)
	assert.True(t, ok)
	assert.Equal(t, models.SlotLed, cmd.Slot)
	assert.Equal(t, models.ColorRed, cmd.Delta[models.AttrLedColor])

	cmd, ok = EvaluateHeartRate(cfg, 80, true)
	assert.True(t, ok)
	assert.Equal(t, models.ColorGreen, cmd.Delta[models.AttrLedColor])

	cmd, _ = EvaluateHeartRate(cfg, 95, true)
	assert.Equal(t, models.ColorRed, cmd.Delta[models.AttrLedColor])

	cfg.CrazyJumping = false
	_, ok = EvaluateHeartRate(cfg, 120, true)
	assert.False(t, ok)
}

func TestMotionRuleIgnoresRuleConfig(t *testing.T) {
	// The motion rule has no enable flag, so it fires whatever the rule configuration says.
	cmd, ok := EvaluateMotion(true, true)
	assert.True(t, ok)
	assert.Equal(t, RuleMotion, cmd.Rule)
	assert.Equal(t, models.ColorBlue, cmd.Delta[models.AttrLedColor])

	_, ok = EvaluateMotion(false, true)
	assert.False(t, ok)
	_, ok = EvaluateMotion(true, false)
	assert.False(t, ok)
}
