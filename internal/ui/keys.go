package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/jscyril/vibestream/internal/config"
)

// KeyMap holds every binding the player reacts to. Transport keys come from
// the [keys] config section, the rest are fixed.
type KeyMap struct {
	PlayPause   key.Binding
	Next        key.Binding
	Previous    key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	SeekForward key.Binding
	SeekBack    key.Binding
	Mute        key.Binding
	Repeat      key.Binding
	Shuffle     key.Binding
	Favorite    key.Binding
	Search      key.Binding
	Quit        key.Binding

	AddToQueue   key.Binding
	Remove       key.Binding
	MoveUp       key.Binding
	MoveDown     key.Binding
	ClearQueue   key.Binding
	SavePlaylist key.Binding
	NextTab      key.Binding
	Help         key.Binding
}

// NewKeyMap builds bindings from cfg, falling back to the defaults for any
// key left empty.
func NewKeyMap(cfg config.KeyMap) KeyMap {
	def := config.DefaultConfig().Keys
	pick := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	bind := func(v, fallback, helpKey, desc string) key.Binding {
		k := pick(v, fallback)
		if helpKey == "" {
			helpKey = k
		}
		return key.NewBinding(key.WithKeys(k), key.WithHelp(helpKey, desc))
	}

	return KeyMap{
		PlayPause:   key.NewBinding(key.WithKeys(pick(cfg.PlayPause, def.PlayPause), "space"), key.WithHelp("space", "play/pause")),
		Next:        bind(cfg.Next, def.Next, "", "next"),
		Previous:    bind(cfg.Previous, def.Previous, "", "prev"),
		VolumeUp:    key.NewBinding(key.WithKeys(pick(cfg.VolumeUp, def.VolumeUp), "="), key.WithHelp("+/-", "volume")),
		VolumeDown:  bind(cfg.VolumeDown, def.VolumeDown, "", "volume down"),
		SeekForward: bind(cfg.SeekForward, def.SeekForward, "→", "seek +5s"),
		SeekBack:    bind(cfg.SeekBack, def.SeekBack, "←", "seek -5s"),
		Mute:        bind(cfg.Mute, def.Mute, "", "mute"),
		Repeat:      bind(cfg.Repeat, def.Repeat, "", "repeat"),
		Shuffle:     bind(cfg.Shuffle, def.Shuffle, "", "shuffle"),
		Favorite:    bind(cfg.Favorite, def.Favorite, "", "favorite"),
		Search:      bind(cfg.Search, def.Search, "", "search"),
		Quit:        key.NewBinding(key.WithKeys(pick(cfg.Quit, def.Quit), "ctrl+c"), key.WithHelp(pick(cfg.Quit, def.Quit), "quit")),

		AddToQueue:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to queue")),
		Remove:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		MoveUp:       key.NewBinding(key.WithKeys("K"), key.WithHelp("K/J", "move")),
		MoveDown:     key.NewBinding(key.WithKeys("J")),
		ClearQueue:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		SavePlaylist: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save as playlist")),
		NextTab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab/1-4", "switch view")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Next, k.Previous, k.VolumeUp, k.Search, k.NextTab, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Next, k.Previous, k.SeekForward, k.SeekBack},
		{k.VolumeUp, k.Mute, k.Repeat, k.Shuffle, k.Favorite},
		{k.Search, k.AddToQueue, k.Remove, k.MoveUp, k.ClearQueue},
		{k.SavePlaylist, k.NextTab, k.Help, k.Quit},
	}
}
