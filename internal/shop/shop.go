// Package shop is the system store. Gold drips in from quest completions
// and passive exp; it buys consumables, loot boxes and permanent equipment.
package shop

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

var (
	ErrUnknownItem      = errors.New("unknown item")
	ErrLevelTooLow      = errors.New("level too low")
	ErrAlreadyOwned     = errors.New("already owned")
	ErrInsufficientGold = errors.New("insufficient gold")
)

// Effect describes what a purchased item does. Exactly one group of fields
// is set per item; the engine applies it after a successful purchase.
type Effect struct {
	Stats        map[string]int // immediate gauge deltas
	Exp          int            // immediate exp credit
	BuffID       string         // effect catalog id to activate
	BuffDuration time.Duration
	ResetStats   bool   // restore every gauge to 50
	Lootbox      string // "positive" or "needed" random roll
}

// Item is one store entry.
type Item struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       int
	LevelReq    int
	OneTime     bool
	Effect      Effect
}

// Catalog in a fixed display order: consumables, loot boxes, equipment.
var Catalog = []Item{
	{
		ID: "potion_focus", Name: "Focus Potion",
		Description: "Instantly restores 15 focus.",
		Category:    "consumable", Price: 50, LevelReq: 1,
		Effect: Effect{Stats: map[string]int{"focus": 15}},
	},
	{
		ID: "potion_energy", Name: "Energy Potion",
		Description: "Restores 10 wellness and 10 productivity.",
		Category:    "consumable", Price: 60, LevelReq: 1,
		Effect: Effect{Stats: map[string]int{"wellness": 10, "productivity": 10}},
	},
	{
		ID: "potion_exp", Name: "Exp Crystal",
		Description: "Grants 50 exp on the spot.",
		Category:    "consumable", Price: 100, LevelReq: 2,
		Effect: Effect{Exp: 50},
	},
	{
		ID: "scroll_double_exp", Name: "Double Exp Scroll",
		Description: "Doubles exp gains for the next 30 minutes.",
		Category:    "consumable", Price: 200, LevelReq: 3,
		Effect: Effect{BuffID: "double_exp", BuffDuration: 30 * time.Minute},
	},
	{
		ID: "elixir_stat_reset", Name: "Stat Reset Elixir",
		Description: "Restores every stat gauge to 50.",
		Category:    "consumable", Price: 500, LevelReq: 5,
		Effect: Effect{ResetStats: true},
	},
	{
		ID: "blessed_random_box", Name: "Blessed Random Box",
		Description: "An item you want. Random positive effect.",
		Category:    "lootbox", Price: 150, LevelReq: 2,
		Effect: Effect{Lootbox: "positive"},
	},
	{
		ID: "cursed_random_box", Name: "Cursed Random Box",
		Description: "An item you need. Possibly bitter medicine.",
		Category:    "lootbox", Price: 80, LevelReq: 1,
		Effect: Effect{Lootbox: "needed"},
	},
	{
		ID: "ring_focus", Name: "Ring of Focus",
		Description: "Permanently raises focus by 5.",
		Category:    "equipment", Price: 300, LevelReq: 3, OneTime: true,
		Effect: Effect{Stats: map[string]int{"focus": 5}},
	},
	{
		ID: "pendant_wisdom", Name: "Pendant of Wisdom",
		Description: "Permanently raises creativity by 5.",
		Category:    "equipment", Price: 300, LevelReq: 3, OneTime: true,
		Effect: Effect{Stats: map[string]int{"creativity": 5}},
	},
}

var byID = func() map[string]Item {
	m := make(map[string]Item, len(Catalog))
	for _, it := range Catalog {
		m[it.ID] = it
	}
	return m
}()

// Listing is one store entry as presented for a given player level.
type Listing struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int    `json:"price"`
	LevelReq    int    `json:"level_req"`
	Available   bool   `json:"available"`
	Affordable  bool   `json:"affordable"`
}

// Receipt reports a successful purchase.
type Receipt struct {
	Item          string `json:"item"`
	Effect        Effect `json:"-"`
	GoldRemaining int    `json:"gold_remaining"`
}

// State is the persisted portion of the shop.
type State struct {
	Gold            int      `json:"gold"`
	TotalEarned     int      `json:"total_earned"`
	TotalSpent      int      `json:"total_spent"`
	OneTimePurchase []string `json:"one_time_purchased"`
}

// Shop tracks the gold balance and one-time purchases.
type Shop struct {
	mu          sync.Mutex
	bus         *event.Bus
	now         func() time.Time
	gold        int
	totalEarned int
	totalSpent  int
	owned       map[string]bool
}

// New builds the shop and subscribes its gold-income handlers. A nil now
// defaults to time.Now.
func New(bus *event.Bus, now func() time.Time) *Shop {
	if now == nil {
		now = time.Now
	}
	s := &Shop{bus: bus, now: now, owned: make(map[string]bool)}
	bus.Subscribe(event.QuestCompleted, "shop", s.onQuestCompleted)
	bus.Subscribe(event.ExpGained, "shop", s.onExpGained)
	return s
}

// Quest gold is roughly half the exp earned, never less than 5.
func (s *Shop) onQuestCompleted(ev event.Event) error {
	info, ok := ev.Payload.(types.QuestInfo)
	if !ok {
		return nil
	}
	gold := info.ExpEarned / 2
	if gold < 5 {
		gold = 5
	}
	s.AddGold(gold, "quest")
	return nil
}

// Meaningful passive exp drips one gold per gain.
func (s *Shop) onExpGained(ev event.Event) error {
	info, ok := ev.Payload.(types.ExpGainInfo)
	if !ok {
		return nil
	}
	if strings.HasPrefix(info.Source, "passive:") && info.Amount >= 3 {
		s.AddGold(1, "passive")
	}
	return nil
}

// AddGold credits the balance.
func (s *Shop) AddGold(amount int, source string) {
	s.mu.Lock()
	s.gold += amount
	s.totalEarned += amount
	s.mu.Unlock()
}

// Gold returns the current balance.
func (s *Shop) Gold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gold
}

// Items lists the entries visible at the given player level, in catalog
// order. One-time items already owned show as unavailable.
func (s *Shop) Items(playerLevel int) []Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Listing
	for _, it := range Catalog {
		if playerLevel < it.LevelReq {
			continue
		}
		out = append(out, Listing{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Category:    it.Category,
			Price:       it.Price,
			LevelReq:    it.LevelReq,
			Available:   !(it.OneTime && s.owned[it.ID]),
			Affordable:  s.gold >= it.Price,
		})
	}
	return out
}

// Purchase buys an item for the given player level. Declined purchases
// return a sentinel wrapped with the item id; the caller applies the
// receipt's Effect.
func (s *Shop) Purchase(itemID string, playerLevel int) (*Receipt, error) {
	it, ok := byID[itemID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", itemID, ErrUnknownItem)
	}
	if playerLevel < it.LevelReq {
		return nil, fmt.Errorf("%s needs level %d: %w", itemID, it.LevelReq, ErrLevelTooLow)
	}

	s.mu.Lock()
	if it.OneTime && s.owned[it.ID] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", itemID, ErrAlreadyOwned)
	}
	if s.gold < it.Price {
		gold := s.gold
		s.mu.Unlock()
		return nil, fmt.Errorf("%s costs %d, have %d: %w", itemID, it.Price, gold, ErrInsufficientGold)
	}
	s.gold -= it.Price
	s.totalSpent += it.Price
	if it.OneTime {
		s.owned[it.ID] = true
	}
	remaining := s.gold
	s.mu.Unlock()

	s.bus.Publish(event.NotificationPush, types.Notification{
		Title:     "Purchase complete",
		Message:   fmt.Sprintf("%s acquired for %d gold.", it.Name, it.Price),
		Style:     "shop",
		Timestamp: s.now(),
	})

	return &Receipt{Item: it.Name, Effect: it.Effect, GoldRemaining: remaining}, nil
}

// Stats reports the gold ledger.
func (s *Shop) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"gold":         s.gold,
		"total_earned": s.totalEarned,
		"total_spent":  s.totalSpent,
	}
}

// Snapshot returns the persistable state.
func (s *Shop) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := make([]string, 0, len(s.owned))
	for id := range s.owned {
		owned = append(owned, id)
	}
	sort.Strings(owned)
	return State{
		Gold:            s.gold,
		TotalEarned:     s.totalEarned,
		TotalSpent:      s.totalSpent,
		OneTimePurchase: owned,
	}
}

// Restore reloads persisted state.
func (s *Shop) Restore(st State) {
	s.mu.Lock()
	s.gold = st.Gold
	s.totalEarned = st.TotalEarned
	s.totalSpent = st.TotalSpent
	s.owned = make(map[string]bool, len(st.OneTimePurchase))
	for _, id := range st.OneTimePurchase {
		s.owned[id] = true
	}
	s.mu.Unlock()
}
