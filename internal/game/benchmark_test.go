package game

import (
	"math"
	"testing"

	"arena-survival/internal/game/mathx"
)

// populate rings the player with enemies of every regular behavior.
func populate(s *Simulation, n int) {
	behaviors := []Behavior{BehaviorChase, BehaviorDodge, BehaviorTank, BehaviorFly, BehaviorTeleport}
	center := s.st.Player.Pos
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		radius := 250 + float64(i%7)*40
		s.SpawnEnemy(behaviors[i%len(behaviors)], center.Add(mathx.FromAngle(angle).Scale(radius)))
	}
}

func keepAlive(b *testing.B, s *Simulation, n int) {
	st := s.st
	st.Player.Health = st.Player.MaxHealth
	if st.Player.Dead || st.gameOver {
		b.StopTimer()
		s.Reset()
		st = s.st
		st.spawningDisabled = true
		populate(s, n)
		b.StartTimer()
		return
	}
	if len(st.Enemies) < n/2 {
		b.StopTimer()
		populate(s, n-len(st.Enemies))
		b.StartTimer()
	}
}

func BenchmarkTick(b *testing.B) {
	s := newTestSim(b)
	populate(s, 200)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		keepAlive(b, s, 200)
		s.Tick()
	}
}

func BenchmarkTickBossFight(b *testing.B) {
	s := newTestSim(b)
	populate(s, 120)
	s.SpawnEnemy(BehaviorBoss, s.st.Player.Pos.Add(mathx.Vec2{X: 400}))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		keepAlive(b, s, 120)
		s.Tick()
	}
}

func BenchmarkRender(b *testing.B) {
	s := newTestSim(b)
	populate(s, 200)
	for i := 0; i < 60; i++ {
		s.Tick()
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Render()
	}
}

func BenchmarkCollisions(b *testing.B) {
	s := newTestSim(b)
	populate(s, 300)
	for i := 0; i < 64; i++ {
		p := addProjectile(s, OwnerPlayer, s.st.Player.Pos.Add(mathx.FromAngle(float64(i)).Scale(260)), 0)
		p.Pierce = 1 << 20
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.rebuildGrid()
		s.resolveCollisions()
	}
}

func BenchmarkSnapshotView(b *testing.B) {
	s := newTestSim(b)
	populate(s, 200)
	s.Render()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.ViewSnapshot(func(snap *Snapshot) { _ = len(snap.Enemies) })
		}
	})
}
