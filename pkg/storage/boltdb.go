package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/longbark/outpost/pkg/events"
	"github.com/longbark/outpost/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketClients       = []byte("clients")
	bucketSites         = []byte("sites")
	bucketNotifications = []byte("notifications")
	bucketReports       = []byte("reports")
	bucketDashboard     = []byte("dashboard")
	bucketCredentials   = []byte("credentials")
)

// Fixed keys for single-row buckets
var (
	keyDashboard   = []byte("current")
	keyCredentials = []byte("current")
)

// BoltStore implements Store using BoltDB. Committed writes are
// announced on the change broker when one is attached.
type BoltStore struct {
	db     *bolt.DB
	broker *events.Broker
}

// NewBoltStore opens (creating if needed) the cache database under
// dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "outpost.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketClients,
			bucketSites,
			bucketNotifications,
			bucketReports,
			bucketDashboard,
			bucketCredentials,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// SetBroker attaches a change broker. Writes committed afterwards are
// published as change events.
func (s *BoltStore) SetBroker(b *events.Broker) {
	s.broker = b
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) publish(table events.Table, op events.Op, id string) {
	if s.broker != nil {
		s.broker.Publish(events.Change{Table: table, Op: op, ID: id})
	}
}

// --- Clients ---

func (s *BoltStore) UpsertClient(client *types.Client) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClients)
		data, err := json.Marshal(client)
		if err != nil {
			return err
		}
		return b.Put([]byte(client.ID), data)
	})
	if err != nil {
		return err
	}
	s.publish(events.TableClients, events.OpUpsert, client.ID)
	return nil
}

func (s *BoltStore) GetClient(id string) (*types.Client, error) {
	var client types.Client
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClients)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &client)
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *BoltStore) ListClients() ([]*types.Client, error) {
	var clients []*types.Client
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClients)
		return b.ForEach(func(k, v []byte) error {
			var client types.Client
			if err := json.Unmarshal(v, &client); err != nil {
				return err
			}
			clients = append(clients, &client)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })
	return clients, nil
}

// ReplaceClients swaps the full client table in one transaction.
// Clients absent from the new dataset cascade-delete their sites.
func (s *BoltStore) ReplaceClients(clients []*types.Client) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClients)

		kept := make(map[string]bool, len(clients))
		for _, c := range clients {
			kept[c.ID] = true
		}

		// Collect dropped client IDs before clearing the bucket.
		var dropped []string
		if err := b.ForEach(func(k, v []byte) error {
			if !kept[string(k)] {
				dropped = append(dropped, string(k))
			}
			return nil
		}); err != nil {
			return err
		}

		if err := clearBucket(tx, bucketClients); err != nil {
			return err
		}
		b = tx.Bucket(bucketClients)
		for _, c := range clients {
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(c.ID), data); err != nil {
				return err
			}
		}

		for _, id := range dropped {
			if err := deleteSitesOfClient(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.TableClients, events.OpReplace, "")
	return nil
}

// DeleteClient removes a client and, in the same transaction, every
// site it owns.
func (s *BoltStore) DeleteClient(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketClients).Delete([]byte(id)); err != nil {
			return err
		}
		return deleteSitesOfClient(tx, id)
	})
	if err != nil {
		return err
	}
	s.publish(events.TableClients, events.OpDelete, id)
	s.publish(events.TableSites, events.OpDelete, "")
	return nil
}

func (s *BoltStore) ClientCount() (int, error) {
	return s.bucketCount(bucketClients)
}

// --- Sites ---

func (s *BoltStore) UpsertSite(site *types.Site) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		data, err := json.Marshal(site)
		if err != nil {
			return err
		}
		return b.Put([]byte(site.ID), data)
	})
	if err != nil {
		return err
	}
	s.publish(events.TableSites, events.OpUpsert, site.ID)
	return nil
}

func (s *BoltStore) GetSite(id string) (*types.Site, error) {
	var site types.Site
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("site %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &site)
	})
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *BoltStore) ListSites() ([]*types.Site, error) {
	return s.listSites(func(*types.Site) bool { return true })
}

func (s *BoltStore) ListSitesByClient(clientID string) ([]*types.Site, error) {
	return s.listSites(func(site *types.Site) bool { return site.ClientID == clientID })
}

func (s *BoltStore) listSites(match func(*types.Site) bool) ([]*types.Site, error) {
	var sites []*types.Site
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		return b.ForEach(func(k, v []byte) error {
			var site types.Site
			if err := json.Unmarshal(v, &site); err != nil {
				return err
			}
			if match(&site) {
				sites = append(sites, &site)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Name < sites[j].Name })
	return sites, nil
}

// ReplaceSites swaps the full site table in one transaction.
func (s *BoltStore) ReplaceSites(sites []*types.Site) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := clearBucket(tx, bucketSites); err != nil {
			return err
		}
		b := tx.Bucket(bucketSites)
		for _, site := range sites {
			data, err := json.Marshal(site)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(site.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.TableSites, events.OpReplace, "")
	return nil
}

func (s *BoltStore) DeleteSite(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSites).Delete([]byte(id))
	})
	if err != nil {
		return err
	}
	s.publish(events.TableSites, events.OpDelete, id)
	return nil
}

func (s *BoltStore) SiteCount() (int, error) {
	return s.bucketCount(bucketSites)
}

func (s *BoltStore) SiteCountByHealth(status types.HealthStatus) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSites)
		return b.ForEach(func(k, v []byte) error {
			var site types.Site
			if err := json.Unmarshal(v, &site); err != nil {
				return err
			}
			if site.HealthStatus == status {
				count++
			}
			return nil
		})
	})
	return count, err
}

// --- Notifications ---

func (s *BoltStore) UpsertNotification(n *types.Notification) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		return b.Put([]byte(n.ID), data)
	})
	if err != nil {
		return err
	}
	s.publish(events.TableNotifications, events.OpUpsert, n.ID)
	return nil
}

func (s *BoltStore) GetNotification(id string) (*types.Notification, error) {
	var n types.Notification
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotifications returns notifications newest first.
func (s *BoltStore) ListNotifications() ([]*types.Notification, error) {
	var ns []*types.Notification
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		return b.ForEach(func(k, v []byte) error {
			var n types.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			ns = append(ns, &n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].Timestamp > ns[j].Timestamp })
	return ns, nil
}

func (s *BoltStore) ReplaceNotifications(ns []*types.Notification) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := clearBucket(tx, bucketNotifications); err != nil {
			return err
		}
		b := tx.Bucket(bucketNotifications)
		for _, n := range ns {
			data, err := json.Marshal(n)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(n.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.TableNotifications, events.OpReplace, "")
	return nil
}

func (s *BoltStore) MarkNotificationRead(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		var n types.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		n.IsRead = true
		updated, err := json.Marshal(&n)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
	if err != nil {
		return err
	}
	s.publish(events.TableNotifications, events.OpUpsert, id)
	return nil
}

func (s *BoltStore) MarkAllNotificationsRead() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotifications)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var n types.Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if n.IsRead {
				continue
			}
			n.IsRead = true
			updated, err := json.Marshal(&n)
			if err != nil {
				return err
			}
			if err := b.Put(k, updated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.TableNotifications, events.OpReplace, "")
	return nil
}

// --- Reports ---

func (s *BoltStore) GetReport(id string) (*types.Report, error) {
	var r types.Report
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReports)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *BoltStore) ListReports() ([]*types.Report, error) {
	var rs []*types.Report
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReports)
		return b.ForEach(func(k, v []byte) error {
			var r types.Report
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			rs = append(rs, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].GeneratedAt > rs[j].GeneratedAt })
	return rs, nil
}

func (s *BoltStore) ReplaceReports(rs []*types.Report) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := clearBucket(tx, bucketReports); err != nil {
			return err
		}
		b := tx.Bucket(bucketReports)
		for _, r := range rs {
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(events.TableReports, events.OpReplace, "")
	return nil
}

// --- Dashboard snapshot ---

func (s *BoltStore) SaveDashboard(stats *types.DashboardStats) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDashboard)
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return b.Put(keyDashboard, data)
	})
	if err != nil {
		return err
	}
	s.publish(events.TableDashboard, events.OpReplace, "")
	return nil
}

func (s *BoltStore) GetDashboard() (*types.DashboardStats, error) {
	var stats types.DashboardStats
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDashboard)
		data := b.Get(keyDashboard)
		if data == nil {
			return fmt.Errorf("dashboard snapshot: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &stats)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Credentials ---

// SaveCredentials writes the full credential set in one transaction so
// a reader never sees a token without its expiry or principal.
func (s *BoltStore) SaveCredentials(creds *types.Credentials) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		data, err := json.Marshal(creds)
		if err != nil {
			return err
		}
		return b.Put(keyCredentials, data)
	})
}

func (s *BoltStore) GetCredentials() (*types.Credentials, error) {
	var creds types.Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		data := b.Get(keyCredentials)
		if data == nil {
			return fmt.Errorf("credentials: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &creds)
	})
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s *BoltStore) ClearCredentials() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Delete(keyCredentials)
	})
}

// --- helpers ---

func (s *BoltStore) bucketCount(bucket []byte) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// clearBucket drops and recreates a bucket inside an open transaction.
func clearBucket(tx *bolt.Tx, name []byte) error {
	if err := tx.DeleteBucket(name); err != nil {
		return err
	}
	_, err := tx.CreateBucket(name)
	return err
}

// deleteSitesOfClient removes every site owned by clientID inside an
// open transaction. Mirrors the foreign-key cascade of the remote
// schema.
func deleteSitesOfClient(tx *bolt.Tx, clientID string) error {
	b := tx.Bucket(bucketSites)
	c := b.Cursor()
	var doomed [][]byte
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var site types.Site
		if err := json.Unmarshal(v, &site); err != nil {
			continue
		}
		if site.ClientID == clientID {
			doomed = append(doomed, append([]byte(nil), k...))
		}
	}
	for _, k := range doomed {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
