package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/misbar-ag/satwatch/internal/monitor"
)

const (
	sitesCollection    = "sites"
	resultsCollection  = "satellite_data"
	alertsCollection   = "alerts"
	errorsCollection   = "errors"
	settingsCollection = "settings"
	statsDocument      = "stats"
	thresholdsDocument = "alert_thresholds"
)

// FirestoreStore is the production persistence gateway, backed by Cloud
// Firestore. Server timestamps are assigned on every write.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore initializes a Firestore client from the base64-encoded
// service account credentials in FIREBASE_CREDENTIALS.
func NewFirestoreStore(ctx context.Context) (*FirestoreStore, error) {
	encoded := os.Getenv("FIREBASE_CREDENTIALS")
	if encoded == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS is not set")
	}

	creds, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode firestore credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// LoadSites reads every configured site document. An empty collection is
// seeded with the bundled default sites, matching first-run behaviour.
func (s *FirestoreStore) LoadSites(ctx context.Context) ([]monitor.Site, error) {
	var sites []monitor.Site

	iter := s.client.Collection(sitesCollection).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate sites: %w", err)
		}

		var site monitor.Site
		if err := doc.DataTo(&site); err != nil {
			log.Printf("firestore: skipping malformed site %s: %v", doc.Ref.ID, err)
			continue
		}
		site.ID = doc.Ref.ID
		sites = append(sites, site)
	}

	if len(sites) == 0 {
		defaults := DefaultSites()
		if err := s.seedSites(ctx, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}

	return sites, nil
}

func (s *FirestoreStore) seedSites(ctx context.Context, sites []monitor.Site) error {
	for _, site := range sites {
		if _, err := s.client.Collection(sitesCollection).Doc(site.ID).Set(ctx, site); err != nil {
			return fmt.Errorf("failed to seed site %s: %w", site.ID, err)
		}
	}
	return nil
}

// LoadThresholds reads the alert thresholds document, materializing the
// defaults when it does not exist yet.
func (s *FirestoreStore) LoadThresholds(ctx context.Context) (monitor.AlertThresholds, error) {
	doc, err := s.client.Collection(settingsCollection).Doc(thresholdsDocument).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			defaults := monitor.DefaultThresholds()
			if serr := s.SaveThresholds(ctx, defaults); serr != nil {
				return monitor.AlertThresholds{}, serr
			}
			return defaults, nil
		}
		return monitor.AlertThresholds{}, fmt.Errorf("failed to load thresholds: %w", err)
	}

	var t monitor.AlertThresholds
	if err := doc.DataTo(&t); err != nil {
		return monitor.AlertThresholds{}, fmt.Errorf("malformed thresholds document: %w", err)
	}
	return t, nil
}

// SaveThresholds replaces the thresholds document.
func (s *FirestoreStore) SaveThresholds(ctx context.Context, t monitor.AlertThresholds) error {
	_, err := s.client.Collection(settingsCollection).Doc(thresholdsDocument).Set(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to save thresholds: %w", err)
	}
	return nil
}

// SaveResult overwrites the site's current result document.
func (s *FirestoreStore) SaveResult(ctx context.Context, result monitor.SiteResult) error {
	_, err := s.client.Collection(resultsCollection).Doc(result.SiteID).Set(ctx, map[string]interface{}{
		"result":       result,
		"last_updated": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", result.SiteID, err)
	}
	return nil
}

// SaveStats overwrites the fleet statistics document.
func (s *FirestoreStore) SaveStats(ctx context.Context, stats monitor.FleetStats) error {
	_, err := s.client.Collection(settingsCollection).Doc(statsDocument).Set(ctx, map[string]interface{}{
		"stats":        stats,
		"last_updated": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to save fleet stats: %w", err)
	}
	return nil
}

// AppendAlert pushes a new alert document.
func (s *FirestoreStore) AppendAlert(ctx context.Context, alert monitor.AlertRecord) error {
	_, _, err := s.client.Collection(alertsCollection).Add(ctx, map[string]interface{}{
		"alert":      alert,
		"created_at": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to append alert %s: %w", alert.ID, err)
	}
	return nil
}

// LogError pushes a new error document.
func (s *FirestoreStore) LogError(ctx context.Context, source, site, message string) error {
	_, _, err := s.client.Collection(errorsCollection).Add(ctx, map[string]interface{}{
		"source":    source,
		"site":      site,
		"message":   message,
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to log error: %w", err)
	}
	return nil
}
