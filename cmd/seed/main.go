package main

import (
	"context"
	"fmt"
	"log"

	"transigo/internal/catalog"
	"transigo/internal/shared/config"
	"transigo/internal/shared/database"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Transigo Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"cancellations",
		"bookings",
		"schedules",
		"routes",
		"transit_types",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds the transit catalog
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	transitTypes, err := s.SeedTransitTypes()
	if err != nil {
		return fmt.Errorf("failed to seed transit types: %w", err)
	}

	routes, err := s.SeedRoutes(transitTypes)
	if err != nil {
		return fmt.Errorf("failed to seed routes: %w", err)
	}

	if err := s.SeedSchedules(routes); err != nil {
		return fmt.Errorf("failed to seed schedules: %w", err)
	}

	// Clear Redis cache to ensure fresh catalog state
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	return nil
}

// SeedTransitTypes creates the transport modes
func (s *Seeder) SeedTransitTypes() (map[string]catalog.TransitType, error) {
	fmt.Println("  🚌 Seeding transit types...")

	types := []catalog.TransitType{
		{Name: "Bus", Icon: "bus", Color: "#2E86DE", Description: "Intercity and suburban bus lines"},
		{Name: "Tram", Icon: "tram", Color: "#10AC84", Description: "Urban tramway network"},
		{Name: "Train", Icon: "train", Color: "#EE5253", Description: "Regional rail service"},
		{Name: "Metro", Icon: "metro", Color: "#F368E0", Description: "Underground metro lines"},
	}

	result := make(map[string]catalog.TransitType)
	for i := range types {
		if err := s.db.PostgreSQL.Create(&types[i]).Error; err != nil {
			return nil, fmt.Errorf("failed to create transit type %s: %w", types[i].Name, err)
		}
		result[types[i].Name] = types[i]
		fmt.Printf("    Created transit type: %s\n", types[i].Name)
	}

	return result, nil
}

// SeedRoutes creates routes across the seeded transit types
func (s *Seeder) SeedRoutes(transitTypes map[string]catalog.TransitType) (map[string]catalog.Route, error) {
	fmt.Println("  🗺️  Seeding routes...")

	routes := []catalog.Route{
		{
			TransitTypeID:   transitTypes["Bus"].ID,
			Name:            "Algiers - Oran Express",
			Origin:          "Algiers",
			Destination:     "Oran",
			DurationMinutes: 300,
			PriceDA:         1200,
			Active:          true,
		},
		{
			TransitTypeID:   transitTypes["Bus"].ID,
			Name:            "Algiers - Constantine",
			Origin:          "Algiers",
			Destination:     "Constantine",
			DurationMinutes: 390,
			PriceDA:         1500,
			Active:          true,
		},
		{
			TransitTypeID:   transitTypes["Train"].ID,
			Name:            "Coastal Line",
			Origin:          "Algiers",
			Destination:     "Annaba",
			DurationMinutes: 480,
			PriceDA:         2000,
			Active:          true,
		},
		{
			TransitTypeID:   transitTypes["Tram"].ID,
			Name:            "Bab Ezzouar Loop",
			Origin:          "Bab Ezzouar",
			Destination:     "Dergana",
			DurationMinutes: 45,
			PriceDA:         40,
			Active:          true,
		},
		{
			TransitTypeID:   transitTypes["Metro"].ID,
			Name:            "Line 1",
			Origin:          "Tafourah",
			Destination:     "El Harrach",
			DurationMinutes: 30,
			PriceDA:         50,
			Active:          true,
		},
		{
			// Inactive route, kept for reservation rejection testing
			TransitTypeID:   transitTypes["Bus"].ID,
			Name:            "Seasonal Beach Shuttle",
			Origin:          "Algiers",
			Destination:     "Tipaza",
			DurationMinutes: 90,
			PriceDA:         300,
			Active:          false,
		},
	}

	result := make(map[string]catalog.Route)
	for i := range routes {
		if err := s.db.PostgreSQL.Create(&routes[i]).Error; err != nil {
			return nil, fmt.Errorf("failed to create route %s: %w", routes[i].Name, err)
		}
		result[routes[i].Name] = routes[i]
		fmt.Printf("    Created route: %s (%s → %s)\n", routes[i].Name, routes[i].Origin, routes[i].Destination)
	}

	return result, nil
}

// SeedSchedules creates departures for each route
func (s *Seeder) SeedSchedules(routes map[string]catalog.Route) error {
	fmt.Println("  🕐 Seeding schedules...")

	everyday := catalog.NewWeekdayMask(0, 1, 2, 3, 4, 5, 6)
	weekdays := catalog.NewWeekdayMask(0, 1, 2, 3, 4)
	weekend := catalog.NewWeekdayMask(5, 6)

	schedules := []catalog.Schedule{
		{RouteID: routes["Algiers - Oran Express"].ID, DepartureTime: "06:00", ArrivalTime: "11:00", DaysOfWeek: everyday, Capacity: 50, AvailableSeats: 50},
		{RouteID: routes["Algiers - Oran Express"].ID, DepartureTime: "14:00", ArrivalTime: "19:00", DaysOfWeek: everyday, Capacity: 50, AvailableSeats: 50},
		{RouteID: routes["Algiers - Constantine"].ID, DepartureTime: "07:30", ArrivalTime: "14:00", DaysOfWeek: weekdays, Capacity: 45, AvailableSeats: 45},
		{RouteID: routes["Coastal Line"].ID, DepartureTime: "08:00", ArrivalTime: "16:00", DaysOfWeek: everyday, Capacity: 200, AvailableSeats: 200},
		{RouteID: routes["Coastal Line"].ID, DepartureTime: "20:00", ArrivalTime: "04:00", DaysOfWeek: weekend, Capacity: 200, AvailableSeats: 200},
		{RouteID: routes["Bab Ezzouar Loop"].ID, DepartureTime: "05:30", ArrivalTime: "06:15", DaysOfWeek: everyday, Capacity: 120, AvailableSeats: 120},
		{RouteID: routes["Line 1"].ID, DepartureTime: "05:00", ArrivalTime: "05:30", DaysOfWeek: everyday, Capacity: 300, AvailableSeats: 300},
		// Nearly full schedule for exhaustion testing
		{RouteID: routes["Algiers - Constantine"].ID, DepartureTime: "18:00", ArrivalTime: "00:30", DaysOfWeek: weekdays, Capacity: 45, AvailableSeats: 2},
	}

	for i := range schedules {
		if err := s.db.PostgreSQL.Create(&schedules[i]).Error; err != nil {
			return fmt.Errorf("failed to create schedule at %s: %w", schedules[i].DepartureTime, err)
		}
		fmt.Printf("    Created schedule: %s departing %s\n", schedules[i].RouteID, schedules[i].DepartureTime)
	}

	return nil
}
