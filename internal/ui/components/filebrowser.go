package components

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jscyril/vibestream/internal/audio"
)

// FileEntry is a directory or a playable file shown in the browser
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
}

// FileBrowser navigates the filesystem and picks audio files or whole
// directories to import into the local library
type FileBrowser struct {
	Width       int
	Height      int
	CurrentPath string
	Entries     []FileEntry
	Err         error
	Cursor

	DirStyle      lipgloss.Style
	FileStyle     lipgloss.Style
	SelectedStyle lipgloss.Style
	PathStyle     lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewFileBrowser creates a browser at startPath, or the home directory when
// startPath is empty
func NewFileBrowser(startPath string, width, height int) FileBrowser {
	fb := FileBrowser{
		Width:         width,
		Height:        height,
		DirStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
		FileStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		SelectedStyle: lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("255")).Bold(true),
		PathStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}

	if startPath == "" {
		startPath = "/"
		if home, err := os.UserHomeDir(); err == nil {
			startPath = home
		}
	}
	fb.Navigate(startPath)
	return fb
}

// Navigate lists path: parent link first, then directories, then supported
// audio files, each group sorted case-insensitively. Hidden entries are skipped.
func (fb *FileBrowser) Navigate(path string) {
	fb.CurrentPath = path
	fb.Reset()
	fb.Err = nil
	fb.Entries = nil

	entries, err := os.ReadDir(path)
	if err != nil {
		fb.Err = err
		return
	}

	if parent := filepath.Dir(path); parent != path {
		fb.Entries = append(fb.Entries, FileEntry{Name: "..", Path: parent, IsDir: true})
	}

	var dirs, files []FileEntry
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(path, name)
		switch {
		case entry.IsDir():
			dirs = append(dirs, FileEntry{Name: name, Path: full, IsDir: true})
		case audio.IsSupported(full):
			files = append(files, FileEntry{Name: name, Path: full})
		}
	}

	byName := func(a, b FileEntry) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	slices.SortFunc(dirs, byName)
	slices.SortFunc(files, byName)

	fb.Entries = append(fb.Entries, dirs...)
	fb.Entries = append(fb.Entries, files...)
}

// Update handles navigation keys
func (fb FileBrowser) Update(msg tea.Msg) (FileBrowser, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return fb, nil
	}

	if fb.navigate(keyMsg.String(), len(fb.Entries), fb.visibleHeight()) {
		return fb, nil
	}
	switch keyMsg.String() {
	case "backspace":
		if parent := filepath.Dir(fb.CurrentPath); parent != fb.CurrentPath {
			fb.Navigate(parent)
		}
	case "~":
		if home, err := os.UserHomeDir(); err == nil {
			fb.Navigate(home)
		}
	}
	return fb, nil
}

// SelectedEntry returns the currently selected entry, or nil if none
func (fb *FileBrowser) SelectedEntry() *FileEntry {
	if fb.Selected >= 0 && fb.Selected < len(fb.Entries) {
		return &fb.Entries[fb.Selected]
	}
	return nil
}

// EnterSelected opens a selected directory and returns "", or returns the
// path of a selected file
func (fb *FileBrowser) EnterSelected() string {
	entry := fb.SelectedEntry()
	if entry == nil {
		return ""
	}
	if entry.IsDir {
		fb.Navigate(entry.Path)
		return ""
	}
	return entry.Path
}

func (fb *FileBrowser) visibleHeight() int {
	// border, path line and help
	return max(fb.Height-6, 1)
}

func (fb FileBrowser) fileCount() int {
	n := 0
	for _, e := range fb.Entries {
		if !e.IsDir {
			n++
		}
	}
	return n
}

// View renders the file browser
func (fb FileBrowser) View() string {
	var sb strings.Builder

	sb.WriteString(fb.PathStyle.Render("📁 " + fb.CurrentPath))
	sb.WriteString("\n\n")

	if fb.Err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Error: " + fb.Err.Error()))
		sb.WriteString("\n")
	}

	visible := fb.visibleHeight()
	start, end := fb.Window(len(fb.Entries), visible)
	for i := start; i < end; i++ {
		entry := fb.Entries[i]

		line := "🎵 " + entry.Name
		style := fb.FileStyle
		if entry.IsDir {
			line = "📂 " + entry.Name
			style = fb.DirStyle
		}
		if i == fb.Selected {
			style = fb.SelectedStyle
		}
		sb.WriteString(style.Render(truncate(line, fb.Width-10)))
		sb.WriteString("\n")
	}
	for i := end - start; i < visible; i++ {
		sb.WriteString("\n")
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(muted.Render(fmt.Sprintf("%s\nFiles: %d", strings.Repeat("─", 20), fb.fileCount())))
	sb.WriteString("\n\n")
	sb.WriteString(muted.Render("[Enter] Open/Add  [A] Add folder  [Backspace] Up  [~] Home  [Esc] Cancel"))

	return fb.BorderStyle.Width(fb.Width - 4).Render(sb.String())
}
