package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWeaponDefinitions checks every weapon kind is usable
func TestWeaponDefinitions(t *testing.T) {
	for k := WeaponKind(0); k < weaponKindCount; k++ {
		t.Run(k.String(), func(t *testing.T) {
			def := defFor(k)
			assert.NotEmpty(t, def.Name)
			assert.Positive(t, def.Damage)
			assert.Positive(t, def.FireRate)
			assert.Positive(t, def.Speed)
			assert.Positive(t, def.Lifetime)
			assert.GreaterOrEqual(t, def.MaxProjectiles, def.Projectiles)
			assert.False(t, def.Base && def.Merge, "a kind is either offered or merged into")
			if def.Burst {
				assert.Positive(t, def.BurstFire)
				assert.Positive(t, def.BurstBreak)
			}
		})
	}
}

func TestUnknownWeaponDefaultsToBlaster(t *testing.T) {
	w := NewWeapon(weaponKindCount + 3)
	assert.Equal(t, WeaponBlaster, w.Kind)
	assert.Equal(t, "Blaster", WeaponKind(200).String())
}

// A weapon with fire rate r fires exactly k times in k*r ticks.
func TestFireCountMatchesFireRate(t *testing.T) {
	tests := []struct {
		kind WeaponKind
		k    int
	}{
		{WeaponBlaster, 1},
		{WeaponBlaster, 7},
		{WeaponCannon, 4},
		{WeaponRailgun, 5},
		{WeaponClusterMissile, 3},
		{WeaponStormLance, 6},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			w := NewWeapon(tt.kind)
			fired := 0
			for i := 0; i < tt.k*w.FireRate; i++ {
				if w.advance(w.FireRate) {
					fired++
				}
			}
			assert.Equal(t, tt.k, fired)
		})
	}
}

func TestMergedWeaponFiresInSimulation(t *testing.T) {
	s := newTestSim(t)
	p := &s.st.Player
	p.Weapons = []*Weapon{NewWeapon(WeaponClusterMissile)}

	rate := p.Weapons[0].FireRate
	for i := 0; i < 3*rate; i++ {
		s.Tick()
	}

	w := p.Weapons[0]
	assert.True(t, w.IsMerge)
	assert.Equal(t, uint64(3), w.Fired)
}

func TestBurstWeaponSkipsBreakWindow(t *testing.T) {
	w := NewWeapon(WeaponRapid)
	def := defFor(WeaponRapid)
	require.True(t, def.Burst)

	firing, breaking := 0, 0
	cycle := def.BurstFire + def.BurstBreak
	for tick := 1; tick < cycle; tick++ {
		fired := w.advance(w.FireRate)
		if fired {
			assert.False(t, w.Burst.Breaking, "tick %d fired inside the break window", tick)
		}
		switch {
		case tick <= def.BurstFire && fired:
			firing++
		case tick > def.BurstFire && fired:
			breaking++
		}
	}

	assert.Equal(t, def.BurstFire/w.FireRate-1, firing)
	assert.Zero(t, breaking)

	// The break window ends on the cycle boundary and the weapon fires again.
	assert.True(t, w.advance(w.FireRate))
	assert.False(t, w.Burst.Breaking)
}

func TestHasteShortensFireRate(t *testing.T) {
	w := NewWeapon(WeaponBlaster)
	var set PassiveSet
	assert.Equal(t, w.FireRate, w.effectiveFireRate(set.FireRateMult()))

	for i := 0; i < MaxPassiveStacks; i++ {
		set.Add(PassiveHaste)
	}
	assert.Less(t, w.effectiveFireRate(set.FireRateMult()), w.FireRate)

	fast := NewWeapon(WeaponMinigun)
	assert.Equal(t, 1, fast.effectiveFireRate(0.01))
}

func TestUpgradeGrowsDamageAndProjectiles(t *testing.T) {
	w := NewWeapon(WeaponHoming)
	def := defFor(WeaponHoming)

	for i := 0; i < MaxWeaponLevel+3; i++ {
		w.Upgrade()
	}

	assert.Equal(t, MaxWeaponLevel, w.Level)
	assert.Equal(t, WeaponHoming, w.Kind)
	assert.InDelta(t, def.Damage+def.DamagePerLevel*float64(MaxWeaponLevel-1), w.Damage, 1e-9)
	// Count grows on levels 2..ProjectileLevelCap-1 only.
	assert.Equal(t, def.Projectiles+ProjectileLevelCap-2, w.ProjectileCount)

	res := w.Upgrade()
	assert.False(t, res.Upgraded)
}

func TestProjectileCountRespectsMaximum(t *testing.T) {
	w := NewWeapon(WeaponChain)
	for i := 0; i < MaxWeaponLevel; i++ {
		w.Upgrade()
	}
	assert.Equal(t, defFor(WeaponChain).MaxProjectiles, w.ProjectileCount)
}

func TestUpgradeEvolvesAtLevel(t *testing.T) {
	tests := []struct {
		from WeaponKind
		to   WeaponKind
	}{
		{WeaponBlaster, WeaponRailgun},
		{WeaponSpread, WeaponFlak},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			w := NewWeapon(tt.from)
			var last UpgradeResult
			for w.Level < 5 {
				last = w.Upgrade()
				if w.Level < 5 {
					assert.False(t, last.Evolved)
				}
			}

			require.True(t, last.Evolved)
			assert.Equal(t, tt.from, last.From)
			assert.Equal(t, tt.to, last.To)
			assert.Equal(t, tt.to, w.Kind)
			assert.Equal(t, defFor(tt.to).FireRate, w.FireRate)
			assert.GreaterOrEqual(t, w.Damage, defFor(tt.to).Damage)
			assert.GreaterOrEqual(t, w.ProjectileCount, defFor(tt.to).Projectiles)
		})
	}
}

func TestCheckMerge(t *testing.T) {
	leveled := func(k WeaponKind, level int) *Weapon {
		w := NewWeapon(k)
		w.Level = level
		return w
	}

	tests := []struct {
		name    string
		weapons []*Weapon
		merged  bool
		result  WeaponKind
		kinds   []WeaponKind
	}{
		{
			name:    "cluster missile",
			weapons: []*Weapon{leveled(WeaponHoming, 3), leveled(WeaponBlaster, 1), leveled(WeaponCannon, 3)},
			merged:  true,
			result:  WeaponClusterMissile,
			kinds:   []WeaponKind{WeaponClusterMissile, WeaponBlaster},
		},
		{
			name:    "inputs in reverse order keep the earlier slot",
			weapons: []*Weapon{leveled(WeaponCannon, 4), leveled(WeaponHoming, 5)},
			merged:  true,
			result:  WeaponClusterMissile,
			kinds:   []WeaponKind{WeaponClusterMissile},
		},
		{
			name:    "storm lance",
			weapons: []*Weapon{leveled(WeaponRailgun, 1), leveled(WeaponSpread, 2), leveled(WeaponChain, 3)},
			merged:  true,
			result:  WeaponStormLance,
			kinds:   []WeaponKind{WeaponStormLance, WeaponSpread},
		},
		{
			name:    "below minimum level",
			weapons: []*Weapon{leveled(WeaponHoming, 2), leveled(WeaponCannon, 3)},
			merged:  false,
			kinds:   []WeaponKind{WeaponHoming, WeaponCannon},
		},
		{
			name:    "missing partner",
			weapons: []*Weapon{leveled(WeaponSpread, 8), leveled(WeaponBlaster, 8)},
			merged:  false,
			kinds:   []WeaponKind{WeaponSpread, WeaponBlaster},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, res, ok := checkMerge(tt.weapons)
			assert.Equal(t, tt.merged, ok)
			if ok {
				assert.Equal(t, tt.result, res.Result)
			}

			kinds := make([]WeaponKind, 0, len(out))
			for _, w := range out {
				kinds = append(kinds, w.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)

			if ok {
				merged := out[0]
				assert.True(t, merged.IsMerge)
				assert.Equal(t, 1, merged.Level)
			}
		})
	}
}

func TestFireWeaponSpawnsPlayerProjectiles(t *testing.T) {
	s := newTestSim(t)
	w := NewWeapon(WeaponSpread)
	s.fireWeapon(w, s.st.Player.Facing)

	require.Len(t, s.st.Projectiles, w.ProjectileCount)
	for _, p := range s.st.Projectiles {
		assert.True(t, p.Active())
		assert.Equal(t, OwnerPlayer, p.Owner)
		assert.Equal(t, WeaponSpread, p.Weapon)
		assert.InDelta(t, defFor(WeaponSpread).Speed, p.Vel.Len(), 1e-9)
	}
}
