package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

type EmployeeStore struct {
	db *sql.DB
}

func NewEmployeeStore(db *sql.DB) *EmployeeStore {
	return &EmployeeStore{db: db}
}

func scanEmployee(scanner interface{ Scan(...any) error }) (*model.Employee, error) {
	var e model.Employee
	var lastLogin sql.NullTime

	err := scanner.Scan(
		&e.ID, &e.Email, &e.Name, &e.Role, &e.PasswordHash,
		&e.Status, &lastLogin, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		e.LastLogin = &t
	}
	return &e, nil
}

const employeeCols = `id, email, name, role, password_hash, status, last_login, created_at, updated_at`

func (s *EmployeeStore) Create(email, name, role, passwordHash string) (*model.Employee, error) {
	result, err := s.db.Exec(
		`INSERT INTO employees (email, name, role, password_hash) VALUES (?, ?, ?, ?)`,
		email, name, role, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert employee: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EmployeeStore) GetByID(id int64) (*model.Employee, error) {
	row := s.db.QueryRow(`SELECT `+employeeCols+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (s *EmployeeStore) GetByEmail(email string) (*model.Employee, error) {
	row := s.db.QueryRow(`SELECT `+employeeCols+` FROM employees WHERE email = ?`, email)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee by email: %w", err)
	}
	return e, nil
}

func (s *EmployeeStore) List() ([]model.Employee, error) {
	rows, err := s.db.Query(`SELECT ` + employeeCols + ` FROM employees ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

func (s *EmployeeStore) ListByStatus(status model.Status) ([]model.Employee, error) {
	rows, err := s.db.Query(
		`SELECT `+employeeCols+` FROM employees WHERE status = ? ORDER BY name ASC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list employees by status: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

func (s *EmployeeStore) UpdateStatus(id int64, status model.Status) error {
	_, err := s.db.Exec(
		`UPDATE employees SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update employee status: %w", err)
	}
	return nil
}

func (s *EmployeeStore) UpdateLastLogin(id int64, t time.Time) error {
	_, err := s.db.Exec(
		`UPDATE employees SET last_login = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
