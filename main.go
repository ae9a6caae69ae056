package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"Kestrel/CronJobs"
	"Kestrel/FiberConfig"
	"Kestrel/Models"
	"Kestrel/Notifications"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment")
	}

	Models.Connect()

	checker := CronJobs.NewOverdueChecker(Models.DB, FiberConfig.GraceDuration(), Notifications.LogNotifier{})
	if err := checker.Start(os.Getenv("OVERDUE_SWEEP_SCHEDULE")); err != nil {
		log.Printf("Failed to start overdue sweep: %v", err)
	}
	defer checker.Stop()

	FiberConfig.FiberConfig()
}
