package game

// PlayerDeathInfo is passed to OnPlayerDeath.
type PlayerDeathInfo struct {
	RunID     string
	Tick      uint64
	Level     int
	Kills     int
	BossKills int
}

// BossDefeatedInfo is passed to OnBossDefeated.
type BossDefeatedInfo struct {
	Tier      int
	Variant   string
	BossKills int
	Tick      uint64
}

// LevelUpInfo is passed to OnLevelUp.
type LevelUpInfo struct {
	RunID string
	Tick  uint64
	Level int
}

// ChestInfo is passed to OnChestCollected.
type ChestInfo struct {
	Tick   uint64
	X, Y   float64
	Reward string // label of the granted upgrade
}

// Callbacks are the simulation-to-presentation hooks. Each is invoked on its
// own goroutine; the simulation never waits for them. Nil hooks are skipped.
type Callbacks struct {
	OnPlayerDeath    func(PlayerDeathInfo)
	OnBossDefeated   func(BossDefeatedInfo)
	OnLevelUp        func(LevelUpInfo)
	OnChestCollected func(ChestInfo)
}
