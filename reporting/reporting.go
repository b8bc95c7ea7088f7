package reporting

import (
	"fmt"
	"strings"

	"github.com/EasterCompany/dex-leveling-service/health"
	"github.com/EasterCompany/dex-leveling-service/system"
	"github.com/EasterCompany/dex-leveling-service/utils"
	"github.com/dustin/go-humanize"
)

// Status is everything the final report shows besides host usage.
type Status struct {
	Discord      string
	Store        string
	Backend      string
	Guilds       int
	Tiers        int
	StatusAddr   string
	Version      utils.Version
	PruneEnabled bool
}

func formatSystemStatus(s system.Snapshot) string {
	return strings.Join([]string{
		"**System Status**",
		fmt.Sprintf("🖥️ CPU: `%.2f%%`", s.CPUPercent),
		fmt.Sprintf("🧠 Memory: `%.2f%%` (`%s / %s`)", s.MemoryPercent, humanize.IBytes(s.MemoryUsed), humanize.IBytes(s.MemoryTotal)),
		fmt.Sprintf("⚙️ Process: `%d goroutines`, `%s heap`", s.Goroutines, humanize.IBytes(s.HeapAlloc)),
	}, "\n")
}

func formatServiceStatus(st Status) string {
	prune := "disabled"
	if st.PruneEnabled {
		prune = "enabled"
	}
	return strings.Join([]string{
		"**Service Status**",
		fmt.Sprintf("Discord: %s", health.Format(st.Discord)),
		fmt.Sprintf("Store (`%s`): %s", st.Backend, health.Format(st.Store)),
		fmt.Sprintf("Guilds: `%d`", st.Guilds),
		fmt.Sprintf("Tier roles: `%d`", st.Tiers),
		fmt.Sprintf("Prune sweep: `%s`", prune),
		fmt.Sprintf("Status server: `http://%s`", st.StatusAddr),
	}, "\n")
}

// FinalStatus renders the report posted once startup completes.
func FinalStatus(st Status, snapshot system.Snapshot) string {
	return strings.Join([]string{
		fmt.Sprintf("`Dexter Leveling` %s is online.", st.Version),
		"",
		formatSystemStatus(snapshot),
		"",
		formatServiceStatus(st),
	}, "\n")
}
