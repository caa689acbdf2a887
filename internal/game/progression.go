package game

import (
	"fmt"

	"arena-survival/internal/game/mathx"
)

// OfferKind is what an upgrade offer grants.
type OfferKind uint8

const (
	OfferUpgrade   OfferKind = iota // raise an owned weapon's level
	OfferNewWeapon                  // add a base weapon
	OfferPassive                    // add or stack a passive
	OfferHeal                       // fallback when nothing else is available
)

// String returns the offer tag.
func (k OfferKind) String() string {
	switch k {
	case OfferUpgrade:
		return "upgrade"
	case OfferNewWeapon:
		return "new_weapon"
	case OfferPassive:
		return "passive"
	default:
		return "heal"
	}
}

// UpgradeOffer is one choice presented on level-up.
type UpgradeOffer struct {
	Kind    OfferKind   `json:"kind"`
	Weapon  WeaponKind  `json:"weapon"`
	Passive PassiveKind `json:"passive"`
	Label   string      `json:"label"`
}

// fallbackHeal is the share of max health restored by OfferHeal.
const fallbackHeal = 0.3

// vitalityHeal is restored when a Vitality stack raises max health.
const vitalityHeal = 20.0

// xpToNext is the XP needed to leave level.
func (s *Simulation) xpToNext(level int) int {
	pb := &s.bal.Progression
	if level < 1 {
		level = 1
	}
	need := int(pb.BaseXP * mathx.IPow(pb.GrowthFactor, level-1))
	if need < 1 {
		need = 1
	}
	return need
}

// addXP credits experience. Level-ups are processed by the progression step.
func (s *Simulation) addXP(n int) {
	p := &s.st.Player
	if n <= 0 || p.Dead {
		return
	}
	p.XP += n
}

// checkLevelUps consumes XP for as many levels as it covers. While a boss
// defeat sequence is running, XP accumulates and level-ups wait.
func (s *Simulation) checkLevelUps() {
	st := s.st
	p := &st.Player
	if st.defeatSequences > 0 {
		if p.XP >= s.xpToNext(p.Level) {
			st.levelUpsDeferred = true
		}
		return
	}
	for !p.Dead {
		need := s.xpToNext(p.Level)
		if p.XP < need {
			return
		}
		p.XP -= need
		s.levelUp()
	}
}

// releaseDeferredLevelUps runs the level-ups held back during a boss defeat.
func (s *Simulation) releaseDeferredLevelUps() {
	st := s.st
	if !st.levelUpsDeferred {
		return
	}
	st.levelUpsDeferred = false
	s.checkLevelUps()
}

// levelUp raises the level and resolves or queues the upgrade choice.
func (s *Simulation) levelUp() {
	st := s.st
	p := &st.Player
	p.Level++

	s.events.EmitSimple(EventTypeLevelUp, st.Tick, "player", LevelUpPayload{Level: p.Level})
	s.log.Info().Int("level", p.Level).Msg("⬆️ Level up")

	if s.callbacks.OnLevelUp != nil {
		go s.callbacks.OnLevelUp(LevelUpInfo{Tick: st.Tick, Level: p.Level, RunID: st.RunID})
	}

	if s.autoPick {
		offers := s.buildOffers(st.offerScratch[:0])
		st.offerScratch = offers
		if len(offers) > 0 {
			s.applyOffer(offers[0])
		}
		return
	}

	if st.awaitingChoice {
		st.pendingChoices++
		return
	}
	s.presentOffers()
}

// presentOffers builds the next choice and halts the simulation on it.
func (s *Simulation) presentOffers() {
	st := s.st
	st.Offers = s.buildOffers(st.Offers[:0])
	st.awaitingChoice = true
}

// chooseUpgrade applies the player's pick. Further queued level-ups are
// presented right away.
func (s *Simulation) chooseUpgrade(index int) error {
	st := s.st
	if !st.awaitingChoice {
		return ErrNoChoicePending
	}
	if index < 0 || index >= len(st.Offers) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChoice, index, len(st.Offers))
	}

	s.applyOffer(st.Offers[index])
	st.Offers = st.Offers[:0]
	st.awaitingChoice = false

	if st.pendingChoices > 0 {
		st.pendingChoices--
		s.presentOffers()
	}
	return nil
}

// buildOffers appends up to OfferCount distinct offers drawn from every
// currently legal upgrade. It never returns an empty list.
func (s *Simulation) buildOffers(dst []UpgradeOffer) []UpgradeOffer {
	st := s.st
	p := &st.Player

	c := st.candidates[:0]
	for _, w := range p.Weapons {
		if w.Level < MaxWeaponLevel {
			c = append(c, UpgradeOffer{
				Kind:   OfferUpgrade,
				Weapon: w.Kind,
				Label:  fmt.Sprintf("%s Lv %d", w.Kind, w.Level+1),
			})
		}
	}
	if len(p.Weapons) < MaxWeapons {
		for k := WeaponKind(0); k < weaponKindCount; k++ {
			if defFor(k).Base && !hasWeapon(p.Weapons, k) {
				c = append(c, UpgradeOffer{Kind: OfferNewWeapon, Weapon: k, Label: "New: " + k.String()})
			}
		}
	}
	for k := PassiveKind(0); k < passiveCount; k++ {
		if !p.Passives.Maxed(k) {
			c = append(c, UpgradeOffer{
				Kind:    OfferPassive,
				Passive: k,
				Label:   fmt.Sprintf("%s %d", k, p.Passives.Stacks(k)+1),
			})
		}
	}
	st.candidates = c

	if len(c) == 0 {
		return append(dst, UpgradeOffer{Kind: OfferHeal, Label: "Heal"})
	}

	st.rng.Shuffle(len(c), func(i, j int) { c[i], c[j] = c[j], c[i] })
	n := s.bal.Progression.OfferCount
	if n < 1 {
		n = 1
	}
	if n > len(c) {
		n = len(c)
	}
	return append(dst, c[:n]...)
}

// applyOffer grants an offer, then runs evolution and merge checks.
func (s *Simulation) applyOffer(o UpgradeOffer) {
	st := s.st
	p := &st.Player

	switch o.Kind {
	case OfferUpgrade:
		for _, w := range p.Weapons {
			if w.Kind != o.Weapon {
				continue
			}
			res := w.Upgrade()
			if res.Evolved {
				s.events.EmitSimple(EventTypeEvolution, st.Tick, "player",
					WeaponPayload{From: res.From.String(), To: res.To.String(), Level: w.Level})
				s.log.Info().Str("from", res.From.String()).Str("to", res.To.String()).Msg("🧬 Weapon evolved")
			}
			break
		}
	case OfferNewWeapon:
		if len(p.Weapons) < MaxWeapons && !hasWeapon(p.Weapons, o.Weapon) {
			p.Weapons = append(p.Weapons, NewWeapon(o.Weapon))
		}
	case OfferPassive:
		if p.Passives.Add(o.Passive) && o.Passive == PassiveVitality {
			p.MaxHealth = s.bal.Player.MaxHealth + p.Passives.BonusHealth()
			s.healPlayer(vitalityHeal)
		}
		return
	default:
		s.healPlayer(p.MaxHealth * fallbackHeal)
		return
	}

	weapons, mr, ok := checkMerge(p.Weapons)
	if !ok {
		return
	}
	p.Weapons = weapons
	s.events.EmitSimple(EventTypeMerge, st.Tick, "player",
		WeaponPayload{From: mr.A.String() + "+" + mr.B.String(), To: mr.Result.String(), Level: 1})
	s.log.Info().Str("a", mr.A.String()).Str("b", mr.B.String()).Str("result", mr.Result.String()).Msg("⚗️ Weapons merged")
}
