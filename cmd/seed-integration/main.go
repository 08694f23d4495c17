// seed-integration creates or updates an accounting integration row for local testing
// and prints a bearer token for its tenant when API_SECRET is set.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	SEED_TENANT_ID=tenant-1 SEED_SERVICE_NAME=quickbooks \
//	SEED_CREDENTIALS='{"access_token":"...","company_id":"..."}' \
//	go run ./cmd/seed-integration
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/mailroom_backend/config"
	"github.com/mmdatafocus/mailroom_backend/models"
	"github.com/mmdatafocus/mailroom_backend/utils"
	"gorm.io/gorm"
)

func main() {
	tenantId := strings.TrimSpace(os.Getenv("SEED_TENANT_ID"))
	serviceName := models.ServiceName(strings.ToLower(strings.TrimSpace(os.Getenv("SEED_SERVICE_NAME"))))
	credentials := strings.TrimSpace(os.Getenv("SEED_CREDENTIALS"))
	if tenantId == "" || serviceName == "" || credentials == "" {
		fmt.Fprintln(os.Stderr, "SEED_TENANT_ID, SEED_SERVICE_NAME and SEED_CREDENTIALS are required")
		os.Exit(2)
	}

	candidate := models.Integration{ServiceName: serviceName, CredentialsJSON: []byte(credentials)}
	if _, err := candidate.DecodeCredentials(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid credentials: %v\n", err)
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	}

	ctx := utils.SetTenantIdInContext(context.Background(), tenantId)

	var existing models.Integration
	err := db.WithContext(ctx).
		Where("service_type = ? AND service_name = ?", models.ServiceTypeAccounting, serviceName).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = models.Integration{
			TenantId:        tenantId,
			ServiceType:     models.ServiceTypeAccounting,
			ServiceName:     serviceName,
			CredentialsJSON: []byte(credentials),
		}
		if err := db.WithContext(ctx).Create(&existing).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create integration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created %s integration %s for tenant %s\n", serviceName, existing.ID, tenantId)
	case err != nil:
		fmt.Fprintf(os.Stderr, "failed to lookup integration: %v\n", err)
		os.Exit(1)
	default:
		if err := db.WithContext(ctx).Model(&existing).Update("credentials", []byte(credentials)).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update integration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("updated %s integration %s for tenant %s\n", serviceName, existing.ID, tenantId)
	}

	if utils.JwtSecretConfigured() {
		token, err := utils.JwtGenerate(tenantId, "staff", 24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to mint token: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Authorization: Bearer %s\n", token)
	}
}
