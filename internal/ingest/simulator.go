// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/netsentry/internal/config"
	"github.com/tomtom215/netsentry/internal/logging"
	"github.com/tomtom215/netsentry/internal/metrics"
	"github.com/tomtom215/netsentry/internal/models"
)

// Playback speed bounds in events per second.
const (
	MinPlaybackSpeed = 0.1
	MaxPlaybackSpeed = 10.0
)

// idleInterval is how long the playback loop sleeps while stopped or paused.
const idleInterval = 100 * time.Millisecond

// Simulated attack classes with their sampling weights inside the attack
// half of the dataset. Flood classes dominate so per-source thresholds
// actually trip during playback.
var attackClasses = []struct {
	class    string
	protocol string
	weight   int
}{
	{"modbus_flooding", models.ProtocolModbus, 35},
	{"tcp_syn_ddos", models.ProtocolTCP, 30},
	{"ping_ddos", models.ProtocolICMP, 20},
	{"mitm_attack", models.ProtocolTCP, 15},
}

var benignProtocols = []struct {
	protocol string
	weight   int
}{
	{models.ProtocolModbus, 45},
	{models.ProtocolTCP, 30},
	{models.ProtocolUDP, 15},
	{models.ProtocolICMP, 5},
	{models.ProtocolOther, 5},
}

// Address pools for synthesized traffic. Engineering stations and PLCs talk
// on 192.168.90.x; attackers sit on a small set of sources so flood
// detection has something to aggregate.
var (
	plcAddresses      = []string{"192.168.90.5", "192.168.90.6", "192.168.90.7", "192.168.90.10"}
	stationAddresses  = []string{"192.168.90.21", "192.168.90.22", "192.168.90.23", "192.168.90.24", "192.168.90.25"}
	attackerAddresses = []string{"185.220.101.34", "185.220.101.35", "45.134.26.118", "103.251.167.20"}
)

// datasetRow is one pre-generated observation awaiting playback.
type datasetRow struct {
	sourceIP      string
	destinationIP string
	protocol      string
	packetSize    int
	class         string
	confidence    float64
	features      map[string]float64
}

// SimulatorStatus is a point-in-time snapshot of playback state.
type SimulatorStatus struct {
	Running          bool             `json:"is_running"`
	Paused           bool             `json:"is_paused"`
	CurrentRow       int              `json:"current_row"`
	TotalRows        int              `json:"total_rows"`
	ProgressPercent  float64          `json:"progress_percent"`
	PlaybackSpeed    float64          `json:"playback_speed"`
	RandomMode       bool             `json:"random_mode"`
	ProcessedPackets int              `json:"processed_packets"`
	RemainingPackets int              `json:"remaining_packets"`
	AttackCounts     map[string]int64 `json:"attack_counts"`
}

// Simulator replays a synthetic classified-traffic dataset into the pipeline
// when no external classifier is attached.
//
// The dataset is generated once at construction: the first half is benign
// traffic, the second half attack traffic. Random mode plays a weighted
// index pool biased 30%/70% toward the attack half; sequential mode walks
// the dataset front to back. Playback speed is events per second, clamped
// to [0.1, 10.0] and enforced with a token-bucket limiter so speed changes
// take effect immediately.
//
// Thread Safety: All control methods are safe for concurrent use with the
// Run loop.
type Simulator struct {
	handler   RecordHandler
	chunkSize int
	limiter   *rate.Limiter

	mu         sync.Mutex
	running    bool
	paused     bool
	randomMode bool
	speed      float64
	currentRow int
	dataset    []datasetRow
	available  []int
	processed  map[int]struct{}
	counts     map[string]int64
	rng        *rand.Rand

	timeFunc func() time.Time
}

// SimulatorOption customizes simulator construction.
type SimulatorOption func(*Simulator)

// WithSeed fixes the dataset and sampling RNG for reproducible playback.
func WithSeed(seed int64) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic traffic, not security material
	}
}

// WithSimulatorClock overrides the wall clock stamped onto emitted records.
func WithSimulatorClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) {
		s.timeFunc = now
	}
}

// NewSimulator builds a simulator emitting records to handler.
func NewSimulator(cfg config.SimulatorConfig, handler RecordHandler, opts ...SimulatorOption) (*Simulator, error) {
	if handler == nil {
		return nil, fmt.Errorf("simulator: record handler is required")
	}
	if cfg.DatasetSize <= 0 {
		return nil, fmt.Errorf("simulator: dataset size must be positive, got %d", cfg.DatasetSize)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10
	}

	s := &Simulator{
		handler:    handler,
		chunkSize:  chunkSize,
		randomMode: cfg.RandomMode,
		speed:      clampSpeed(cfg.PlaybackSpeed),
		processed:  make(map[int]struct{}),
		counts:     make(map[string]int64),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // synthetic traffic, not security material
		timeFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.limiter = rate.NewLimiter(rate.Limit(s.speed), 1)
	s.dataset = s.generateDataset(cfg.DatasetSize)
	s.rebuildIndexPool()

	logging.Info().Int("rows", len(s.dataset)).Int("weighted_indices", len(s.available)).
		Bool("random_mode", s.randomMode).Float64("speed", s.speed).
		Msg("Simulator dataset generated")
	return s, nil
}

// Run drives playback until ctx is canceled. The loop idles while stopped
// or paused and resumes from where it left off; dataset exhaustion stops
// playback without terminating the loop, so a Reset followed by Start
// replays from the beginning.
func (s *Simulator) Run(ctx context.Context) error {
	logging.Info().Msg("Simulator playback loop started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Simulator playback loop stopping")
			return ctx.Err()
		default:
		}

		s.mu.Lock()
		active := s.running && !s.paused
		s.mu.Unlock()
		if !active {
			select {
			case <-time.After(idleInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		rows := s.nextChunk()
		if len(rows) == 0 {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			logging.Info().Msg("Simulator dataset exhausted, playback stopped")
			continue
		}

		for _, idx := range rows {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			s.mu.Lock()
			if !s.running || s.paused {
				s.mu.Unlock()
				break
			}
			row := s.dataset[idx]
			if row.class != models.ClassNormal {
				s.counts[row.class]++
			}
			s.mu.Unlock()

			s.emit(row)
		}
	}
}

// nextChunk pops up to chunkSize indices from the playback position.
func (s *Simulator) nextChunk() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.randomMode {
		n := s.chunkSize
		if n > len(s.available) {
			n = len(s.available)
		}
		chunk := s.available[:n]
		s.available = s.available[n:]
		for _, idx := range chunk {
			s.processed[idx] = struct{}{}
		}
		s.currentRow += n
		return chunk
	}

	if s.currentRow >= len(s.dataset) {
		return nil
	}
	end := s.currentRow + s.chunkSize
	if end > len(s.dataset) {
		end = len(s.dataset)
	}
	chunk := make([]int, 0, end-s.currentRow)
	for i := s.currentRow; i < end; i++ {
		chunk = append(chunk, i)
		s.processed[i] = struct{}{}
	}
	s.currentRow = end
	return chunk
}

func (s *Simulator) emit(row datasetRow) {
	raw := RawRecord{
		Timestamp:      s.timeFunc().UTC(),
		SourceIP:       row.sourceIP,
		DestinationIP:  row.destinationIP,
		Protocol:       row.protocol,
		PacketSize:     row.packetSize,
		PredictedClass: row.class,
		Confidence:     row.confidence,
		Features:       row.features,
	}
	metrics.SimulatorEvents.Inc()
	s.handler(raw)
}

// Start begins or resumes playback. Starting a running simulator is a no-op.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		logging.Warn().Msg("Simulator already running")
		return
	}
	s.running = true
	s.paused = false
	logging.Info().Float64("speed", s.speed).Msg("Simulator started")
}

// Stop halts playback. Progress is retained; Start resumes from the
// current position.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	logging.Info().Msg("Simulator stopped")
}

// Pause suspends playback without consuming dataset rows.
func (s *Simulator) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	logging.Info().Msg("Simulator paused")
}

// Resume continues playback after a pause.
func (s *Simulator) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	logging.Info().Msg("Simulator resumed")
}

// SetSpeed changes playback speed in events per second. Values outside
// [0.1, 10.0] are clamped. The new pace applies to the next emission.
// Returns the effective speed.
func (s *Simulator) SetSpeed(speed float64) float64 {
	clamped := clampSpeed(speed)

	s.mu.Lock()
	s.speed = clamped
	s.mu.Unlock()

	s.limiter.SetLimit(rate.Limit(clamped))
	logging.Info().Float64("speed", clamped).Msg("Simulator playback speed changed")
	return clamped
}

// Reset rewinds playback to the beginning: clears progress and attack
// counters and rebuilds the weighted index pool. Running state is retained.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRow = 0
	s.processed = make(map[int]struct{})
	s.counts = make(map[string]int64)
	s.rebuildIndexPool()
	logging.Info().Int("weighted_indices", len(s.available)).Msg("Simulator reset to beginning")
}

// SetRandomMode toggles weighted random sampling. Enabling it reshuffles
// the not-yet-processed indices into a fresh pool.
func (s *Simulator) SetRandomMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randomMode = enabled
	if enabled {
		remaining := make([]int, 0, len(s.dataset))
		for i := range s.dataset {
			if _, done := s.processed[i]; !done {
				remaining = append(remaining, i)
			}
		}
		s.rng.Shuffle(len(remaining), func(i, j int) {
			remaining[i], remaining[j] = remaining[j], remaining[i]
		})
		s.available = remaining
	}
}

// Status returns a snapshot of playback state.
func (s *Simulator) Status() SimulatorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}

	progress := 0.0
	if len(s.dataset) > 0 {
		progress = float64(len(s.processed)) / float64(len(s.dataset)) * 100
	}

	return SimulatorStatus{
		Running:          s.running,
		Paused:           s.paused,
		CurrentRow:       s.currentRow,
		TotalRows:        len(s.dataset),
		ProgressPercent:  progress,
		PlaybackSpeed:    s.speed,
		RandomMode:       s.randomMode,
		ProcessedPackets: len(s.processed),
		RemainingPackets: len(s.available),
		AttackCounts:     counts,
	}
}

// generateDataset synthesizes rows: benign traffic in the first half,
// attacks in the second.
func (s *Simulator) generateDataset(size int) []datasetRow {
	rows := make([]datasetRow, size)
	half := size / 2
	for i := 0; i < size; i++ {
		if i < half {
			rows[i] = s.benignRow()
		} else {
			rows[i] = s.attackRow()
		}
	}
	return rows
}

func (s *Simulator) benignRow() datasetRow {
	protocol := models.ProtocolTCP
	pick := s.rng.Intn(100)
	acc := 0
	for _, p := range benignProtocols {
		acc += p.weight
		if pick < acc {
			protocol = p.protocol
			break
		}
	}

	return datasetRow{
		sourceIP:      stationAddresses[s.rng.Intn(len(stationAddresses))],
		destinationIP: plcAddresses[s.rng.Intn(len(plcAddresses))],
		protocol:      protocol,
		packetSize:    64 + s.rng.Intn(448),
		class:         models.ClassNormal,
		confidence:    0.80 + s.rng.Float64()*0.19,
		features:      s.featureVector(protocol, false),
	}
}

func (s *Simulator) attackRow() datasetRow {
	class := attackClasses[0]
	pick := s.rng.Intn(100)
	acc := 0
	for _, c := range attackClasses {
		acc += c.weight
		if pick < acc {
			class = c
			break
		}
	}

	// Flood traffic concentrates on two attacker addresses so per-source
	// aggregation crosses its threshold during playback. MITM rotates
	// through the whole pool.
	var source string
	if class.class == "mitm_attack" {
		source = attackerAddresses[s.rng.Intn(len(attackerAddresses))]
	} else {
		source = attackerAddresses[s.rng.Intn(2)]
	}

	return datasetRow{
		sourceIP:      source,
		destinationIP: plcAddresses[s.rng.Intn(len(plcAddresses))],
		protocol:      class.protocol,
		packetSize:    40 + s.rng.Intn(1400),
		class:         class.class,
		confidence:    0.55 + s.rng.Float64()*0.44,
		features:      s.featureVector(class.protocol, true),
	}
}

func (s *Simulator) featureVector(protocol string, attack bool) map[string]float64 {
	packetRate := 5 + s.rng.Float64()*20
	entropy := 0.2 + s.rng.Float64()*0.3
	if attack {
		packetRate = 200 + s.rng.Float64()*800
		entropy = 0.6 + s.rng.Float64()*0.4
	}
	return map[string]float64{
		"packet_rate":      packetRate,
		"payload_entropy":  entropy,
		"inter_arrival_ms": 1000 / packetRate,
		"has_modbus":       boolFeature(protocol == models.ProtocolModbus),
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// rebuildIndexPool recreates the weighted sampling pool: a quarter of the
// dataset drawn from the benign half, three quarters from the attack half,
// shuffled together. Caller holds s.mu.
func (s *Simulator) rebuildIndexPool() {
	total := len(s.dataset)
	half := total / 2

	normalCount := total / 4
	if normalCount > half {
		normalCount = half
	}
	attackCount := (total * 3) / 4
	if attackCount > total-half {
		attackCount = total - half
	}

	pool := make([]int, 0, normalCount+attackCount)
	pool = append(pool, s.sampleRange(0, half, normalCount)...)
	pool = append(pool, s.sampleRange(half, total, attackCount)...)
	s.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	s.available = pool
}

// sampleRange draws n distinct indices from [lo, hi). Caller holds s.mu.
func (s *Simulator) sampleRange(lo, hi, n int) []int {
	indices := make([]int, hi-lo)
	for i := range indices {
		indices[i] = lo + i
	}
	s.rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	if n > len(indices) {
		n = len(indices)
	}
	return indices[:n]
}

func clampSpeed(speed float64) float64 {
	if speed < MinPlaybackSpeed {
		return MinPlaybackSpeed
	}
	if speed > MaxPlaybackSpeed {
		return MaxPlaybackSpeed
	}
	return speed
}
