package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dataTypes = []string{"zones", "bounds", "cache", "config", "source", "tables"}

type debugData struct {
	Title     string
	Pre       string
	DataTypes []string
	Key       string
}

var dumper = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

func writeDebugData(w http.ResponseWriter, title, key string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title:     title,
		Pre:       dumper.Sdump(data),
		DataTypes: dataTypes,
		Key:       key,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.RequestHasInvalidAPIKey(r) {
		http.Error(w, "permission denied", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	dataType := r.URL.Query().Get("dataType")

	var data interface{}
	var title string
	var err error

	switch dataType {
	case "zones":
		table, loadErr := webUI.Manager.Zones.Load(ctx)
		data, err = table.Zones(), loadErr
		title = "Zone Lookup"
	case "bounds":
		data, err = webUI.Manager.Prober.Bounds(ctx)
		title = "Pickup Date Range"
	case "cache":
		data = webUI.Manager.Cache.Stats()
		title = "Result Cache"
	case "config":
		cfg := webUI.Config
		cfg.ApiKeys = []string{"<redacted>"}
		data = cfg
		title = "Configuration"
	case "source":
		data, err = webUI.Manager.SourceInfo(ctx)
		title = "Trip File"
	case "tables":
		data, err = webUI.Manager.ZoneTableCounts(ctx)
		title = "Zone Database Tables"
	default:
		data = map[string]string{
			"error": "Please use one of the following: zones, bounds, cache, config, source, tables.",
		}
		title = "Choose a data type"
	}

	if err != nil {
		data = map[string]string{"error": err.Error()}
	}

	writeDebugData(w, title, r.URL.Query().Get("key"), data)
}
