package models

import "time"

// Class is a course owned by a faculty member. The roster lives in the
// class_students join table and is loaded separately.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	FacultyID    string    `db:"faculty_id" json:"faculty_id"`
	ScheduleDay  *string   `db:"schedule_day" json:"schedule_day,omitempty"`
	ScheduleTime *string   `db:"schedule_time" json:"schedule_time,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ClassDetail carries a class with its owner and populated roster.
type ClassDetail struct {
	Class
	Faculty  *UserRef  `json:"faculty,omitempty"`
	Students []UserRef `json:"students"`
}

// HasStudent reports roster membership.
func (d *ClassDetail) HasStudent(studentID string) bool {
	for _, s := range d.Students {
		if s.ID == studentID {
			return true
		}
	}
	return false
}

// Schedule is the optional weekly slot attached to a class.
type Schedule struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}
