package quota

import (
	"testing"
	"time"

	"github.com/ajayprojects/portal/pkg/models"
)

func TestCanRequestFreeLimit(t *testing.T) {
	var s models.QuotaState
	for i := 0; i < FreeLimit; i++ {
		if !CanRequest(s, FreeLimit) {
			t.Fatalf("request %d should be allowed", i+1)
		}
		s = RecordConsumption(s)
	}
	if CanRequest(s, FreeLimit) {
		t.Error("request past the free limit should be denied")
	}
	if got := Remaining(s, FreeLimit); got != 0 {
		t.Errorf("remaining = %d, want 0", got)
	}
}

func TestRemainingMonotonic(t *testing.T) {
	var s models.QuotaState
	prev := Remaining(s, FreeLimit)
	for i := 0; i < FreeLimit+2; i++ {
		s = RecordConsumption(s)
		cur := Remaining(s, FreeLimit)
		if cur > prev {
			t.Fatalf("remaining increased: %d -> %d", prev, cur)
		}
		if cur < 0 {
			t.Fatalf("remaining went negative: %d", cur)
		}
		prev = cur
	}
}

func TestUpgradedNeverLimited(t *testing.T) {
	s := Upgrade(models.QuotaState{ConsumedCount: 99})
	if !CanRequest(s, FreeLimit) {
		t.Error("upgraded client should never be limited")
	}
	after := RecordConsumption(s)
	if after.ConsumedCount != s.ConsumedCount {
		t.Error("consumption should not be tracked after upgrade")
	}
}

func TestUpgradeDropsCooldown(t *testing.T) {
	now := time.Now()
	s := BeginCooldown(models.QuotaState{}, now, CooldownDuration)
	s = Upgrade(s)
	if s.CooldownDeadline != nil {
		t.Error("upgrade should clear pending cooldown")
	}
}

func TestCooldownLifecycle(t *testing.T) {
	now := time.Now()
	s := BeginCooldown(models.QuotaState{}, now, CooldownDuration)

	if !CooldownActive(s, now) {
		t.Fatal("cooldown should be active right after arming")
	}
	if got := RemainingCooldown(s, now); got != CooldownDuration {
		t.Errorf("remaining = %v, want %v", got, CooldownDuration)
	}
	if got := RemainingCooldown(s, now.Add(90*time.Second)); got != 30*time.Second {
		t.Errorf("remaining = %v, want 30s", got)
	}
	if CooldownActive(s, now.Add(CooldownDuration)) {
		t.Error("cooldown should lapse at the deadline")
	}
	if got := RemainingCooldown(s, now.Add(5*time.Minute)); got != 0 {
		t.Errorf("remaining past deadline = %v, want 0", got)
	}

	s = ClearCooldown(s)
	if CooldownActive(s, now) {
		t.Error("cleared cooldown should be inactive")
	}
}

func TestBeginCooldownRearms(t *testing.T) {
	now := time.Now()
	s := BeginCooldown(models.QuotaState{}, now, CooldownDuration)
	s = BeginCooldown(s, now.Add(time.Minute), CooldownDuration)
	want := now.Add(time.Minute).Add(CooldownDuration)
	if !s.CooldownDeadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", s.CooldownDeadline, want)
	}
}
