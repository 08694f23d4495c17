package models

import (
	"log"

	"github.com/mmdatafocus/mailroom_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Integration{}, &IntegrationLog{},
		&Customer{},
		&Invoice{}, &InvoiceItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
