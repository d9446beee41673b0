package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/misbar-ag/satwatch/internal/monitor"
)

func newCopernicusServer(t *testing.T, handler http.HandlerFunc) *CopernicusCatalog {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src := NewCopernicusCatalog(srv.Client())
	src.BaseURL = srv.URL
	return src
}

func TestCopernicusFetchUsesLatestProduct(t *testing.T) {
	src := newCopernicusServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("$top"); got != "1" {
			t.Errorf("expected a single-product query, got $top=%q", got)
		}
		if got := r.URL.Query().Get("$orderby"); got != "ContentDate/Start desc" {
			t.Errorf("expected newest-first ordering, got %q", got)
		}
		fmt.Fprint(w, `{"value":[{
			"Name": "S2A_MSIL2A_20260820T071621_N0510_R006_T39RUL_20260820T095806",
			"ContentDate": {"Start": "2026-08-20T07:16:21.024Z"}
		}]}`)
	})

	site := testSite()
	report, err := src.Fetch(context.Background(), site)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(report.SceneID, "S2A_MSIL2A_") {
		t.Errorf("product name not carried through: %q", report.SceneID)
	}
	if report.AcquisitionDate != "2026-08-20" {
		t.Errorf("acquisition date not derived from content date: %q", report.AcquisitionDate)
	}
	if report.NDVI != site.Fallback.HistoricalNDVI[monitor.ProgramSentinel2] {
		t.Errorf("expected archive NDVI for catalog metadata, got %v", report.NDVI)
	}
	if report.Synthetic {
		t.Error("live product must not be flagged synthetic")
	}
}

func TestCopernicusFetchNoProducts(t *testing.T) {
	src := newCopernicusServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})

	_, err := src.Fetch(context.Background(), testSite())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestCopernicusHistoricalIsFlaggedSynthetic(t *testing.T) {
	src := NewCopernicusCatalog(http.DefaultClient)
	site := testSite()

	report, ok := src.Historical(site)
	if !ok {
		t.Fatal("expected a historical report for a site with archive values")
	}
	if !report.Synthetic {
		t.Error("historical report must be flagged synthetic")
	}
	if !strings.HasPrefix(report.SceneID, "S2B_MSIL2A_") || !strings.Contains(report.SceneID, "T39RUL") {
		t.Errorf("synthesized product id must encode platform and tile: %q", report.SceneID)
	}
	if report.NDVI != site.Fallback.HistoricalNDVI[monitor.ProgramSentinel2] {
		t.Errorf("expected archive NDVI, got %v", report.NDVI)
	}
}
