package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gabrielonicala/quillia/app/repository"
	"github.com/gabrielonicala/quillia/internal/pkg/cache"
)

const (
	CacheKeyEntriesTotal = "statistics:entries:total"
	CacheKeyEntriesDaily = "statistics:entries:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers        = "statistics:users:total"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the site-wide totals shown on the landing page.
type StatisticsData struct {
	TodayEntries int
	TotalUsers   int
	TotalEntries int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached totals are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached totals when they are stale.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh the cache.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recounts everything and stores the totals in the cache.
func UpdateStatisticsCache() error {
	repos := repository.GetGlobalRepositories()

	totalEntries, err := repos.Entry.Count()
	if err != nil {
		log.Printf("Error counting total entries: %v", err)
		return err
	}

	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEntries, err := repos.Entry.CountSince(todayStart)
	if err != nil {
		log.Printf("Error counting today's entries: %v", err)
		return err
	}

	totalUsers, err := repos.User.Count()
	if err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyEntriesTotal, strconv.FormatInt(totalEntries, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total entries: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyEntriesDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayEntries, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's entries: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	log.Printf("Statistics updated in cache: Total Entries: %d, Today's Entries: %d, Total Users: %d",
		totalEntries, todayEntries, totalUsers)

	return nil
}

// GetTotalEntries returns the total number of journal entries from cache or database.
func GetTotalEntries() int {
	val, err := cache.Get(CacheKeyEntriesTotal)
	if err != nil {
		count, dbErr := repository.GetGlobalRepositories().Entry.Count()
		if dbErr != nil {
			log.Printf("Error counting total entries: %v", dbErr)
			return 0
		}

		if err := cache.Set(CacheKeyEntriesTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total entries: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayEntries returns the number of entries created today from cache or database.
func GetTodayEntries() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyEntriesDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		todayStart, _ := time.Parse("2006-01-02", today)
		count, dbErr := repository.GetGlobalRepositories().Entry.CountSince(todayStart)
		if dbErr != nil {
			log.Printf("Error counting today's entries: %v", dbErr)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's entries: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database.
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		count, dbErr := repository.GetGlobalRepositories().User.Count()
		if dbErr != nil {
			log.Printf("Error counting total users: %v", dbErr)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all cached site statistics, refreshing if stale.
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayEntries: GetTodayEntries(),
		TotalUsers:   GetTotalUsers(),
		TotalEntries: GetTotalEntries(),
	}
}
