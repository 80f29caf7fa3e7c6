package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"churnsight/ml"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        gender VARCHAR(10),
        senior_citizen INTEGER,
        partner INTEGER,
        dependents INTEGER,
        tenure_months INTEGER,
        phone_service INTEGER,
        internet_service VARCHAR(20),
        monthly_charges REAL,
        total_charges REAL,
        churn INTEGER,
        probability REAL,
        drivers TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );`

	_, err = database.Exec(query)
	return err
}

// PredictionRow is one scored record as stored in the history table.
type PredictionRow struct {
	ID          int64     `json:"id"`
	Gender      string    `json:"gender"`
	Tenure      int       `json:"tenure_months"`
	Monthly     float64   `json:"monthly_charges"`
	Churn       bool      `json:"churn"`
	Probability float64   `json:"probability"`
	Drivers     string    `json:"drivers"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavePrediction appends one analysis outcome to the history table.
func SavePrediction(record ml.CustomerRecord, pred ml.Prediction, drivers string) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO predictions (
            gender, senior_citizen, partner, dependents, tenure_months,
            phone_service, internet_service, monthly_charges, total_charges,
            churn, probability, drivers
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Gender,
		boolToInt(record.SeniorCitizen),
		boolToInt(record.Partner),
		boolToInt(record.Dependents),
		record.TenureMonths,
		boolToInt(record.PhoneService),
		record.InternetService,
		record.MonthlyCharges,
		record.TotalCharges,
		boolToInt(pred.Churn),
		pred.Probability,
		drivers,
	)
	return err
}

// RecentPredictions returns the newest history rows.
func RecentPredictions(limit int) ([]PredictionRow, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT id, gender, tenure_months, monthly_charges, churn, probability, drivers, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]PredictionRow, 0)
	for rows.Next() {
		var row PredictionRow
		var churn int
		if err := rows.Scan(&row.ID, &row.Gender, &row.Tenure, &row.Monthly, &churn, &row.Probability, &row.Drivers, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.Churn = churn == 1
		results = append(results, row)
	}
	return results, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
