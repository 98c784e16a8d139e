// Package sites keeps the registry of sites this relay forwards for. A
// site is identified by its base domain; incoming events are accepted
// only when their page URL maps to a registered domain.
package sites

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// SiteNotFoundError represents an error when a site is not registered
type SiteNotFoundError struct {
	Domain string
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("site not found for domain: %s", e.Domain)
}

// NewSiteNotFoundError creates a new SiteNotFoundError
func NewSiteNotFoundError(domain string) *SiteNotFoundError {
	return &SiteNotFoundError{Domain: domain}
}

// Site represents a registered source site
type Site struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Domain    string    `gorm:"unique;not null" json:"domain"` // Base domain, e.g., "example.com"
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GetSiteOrNotFound retrieves a Site entry by exact domain match.
// It accepts a transaction to be used as part of a larger transaction process.
func GetSiteOrNotFound(tx *gorm.DB, host string) (uint, error) {
	var site Site

	if err := tx.Where("domain = ?", host).First(&site).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, NewSiteNotFoundError(host)
		}
		return 0, fmt.Errorf("unexpected error querying site: %w", err)
	}

	return site.ID, nil
}

// BaseDomainForHost returns the canonical base domain for a hostname, preserving localhost
// semantics while collapsing known subdomain patterns (e.g. foo.example.com -> example.com).
func BaseDomainForHost(host string) string {
	return stripSubdomains(host)
}

// stripSubdomains extracts the base domain from a hostname
func stripSubdomains(host string) string {
	parts := strings.Split(strings.ToLower(host), ".")
	if len(parts) < 2 {
		return host // e.g., "localhost" -> "localhost"
	}

	// Special case for localhost subdomains (e.g., "sub.localhost" -> "localhost")
	lastPart := parts[len(parts)-1]
	if lastPart == "localhost" {
		return "localhost"
	}

	// Take the last two parts as a simple heuristic (e.g., "example.com")
	// Adjust for common ccTLDs that need three parts (e.g., "co.uk", "com.au")
	secondLast := parts[len(parts)-2]

	ccTLDPatterns := map[string]bool{
		"co.uk":  true,
		"co.jp":  true,
		"co.za":  true,
		"co.nz":  true,
		"co.in":  true,
		"com.au": true,
		"com.br": true,
		"org.uk": true,
		"gov.uk": true,
		"edu.au": true,
		"ac.uk":  true,
		"mil.uk": true,
		"ne.jp":  true,
		"or.jp":  true,
	}

	if len(parts) > 2 {
		twoPartTLD := fmt.Sprintf("%s.%s", secondLast, lastPart)
		if ccTLDPatterns[twoPartTLD] {
			thirdLast := parts[len(parts)-3]
			return fmt.Sprintf("%s.%s.%s", thirdLast, secondLast, lastPart) // e.g., "example.co.uk"
		}
	}

	return fmt.Sprintf("%s.%s", secondLast, lastPart) // e.g., "example.com"
}

// GetAllSites retrieves all registered sites
func GetAllSites(db *gorm.DB) ([]Site, error) {
	var sites []Site
	if err := db.Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("failed to get sites: %w", err)
	}
	return sites, nil
}

// GetSiteByID retrieves a site by its ID
func GetSiteByID(db *gorm.DB, id uint) (Site, error) {
	var site Site
	if err := db.First(&site, id).Error; err != nil {
		return Site{}, err
	}
	return site, nil
}

// GetSiteByDomain retrieves a site by its domain
func GetSiteByDomain(db *gorm.DB, domain string) (*Site, error) {
	var site Site
	if err := db.Where("domain = ?", domain).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// CreateSite registers a new site
func CreateSite(db *gorm.DB, site *Site) error {
	site.CreatedAt = time.Now().UTC()
	site.Domain = BaseDomainForHost(strings.TrimSpace(site.Domain))
	if site.Domain == "" {
		return fmt.Errorf("site domain is required")
	}
	return db.Create(site).Error
}

// DeleteSite removes a site by its ID
func DeleteSite(db *gorm.DB, id uint) error {
	result := db.Delete(&Site{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
