package dummydb

import (
	"sync"

	"github.com/ahmedramy514/khadamli-darasi/core/account"
	"github.com/ahmedramy514/khadamli-darasi/core/activity"
	"github.com/ahmedramy514/khadamli-darasi/core/message"
	"github.com/ahmedramy514/khadamli-darasi/core/notification"
)

type (
	// DB is an in-memory store; every table is guarded by its own lock.
	DB struct {
		account      *accountTable
		activity     *activityTables
		notification *notificationTable
		message      *messageTable
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
	}

	activityTables struct {
		sync.RWMutex
		questions   map[string]*activity.Question
		answers     map[string]*activity.Answer
		ratings     map[ratingKey]activity.Rating
		submissions map[submissionKey]*activity.Submission
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}

	messageTable struct {
		sync.RWMutex
		table map[string]*message.Message
	}
)

func Open() *DB {
	return &DB{
		account: &accountTable{table: make(map[string]*account.Account)},
		activity: &activityTables{
			questions:   make(map[string]*activity.Question),
			answers:     make(map[string]*activity.Answer),
			ratings:     make(map[ratingKey]activity.Rating),
			submissions: make(map[submissionKey]*activity.Submission),
		},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		message:      &messageTable{table: make(map[string]*message.Message)},
	}
}
