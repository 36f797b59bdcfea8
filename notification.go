package spot

import (
	"context"
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
	"sync"
	"time"
)

const notificationSendTimeout = 30 * time.Second

// NotificationSink delivers a text message to an external channel.
type NotificationSink interface {
	Send(ctx context.Context, message string) error
}

type notificationTaskType int

const (
	notifyTransactions notificationTaskType = iota
	notifyCashBalance
	stopWorker
)

func (ntt notificationTaskType) String() string {
	switch ntt {
	case notifyTransactions:
		return "NOTIFY_TRANSACTIONS"
	case notifyCashBalance:
		return "NOTIFY_CASH_BALANCE"
	case stopWorker:
		return "STOP_WORKER"
	default:
		panic("unknown notification task type")
	}
}

type notificationTask struct {
	taskType     notificationTaskType
	roundID      string
	transactions []Transaction
	cash         Asset
	balance      decimal.Decimal
	portfolio    *PortfolioPnL
}

// NotificationWorker delivers notifications on its own goroutine so the
// trade loop never waits for a slow sink. Tasks are processed in FIFO
// order.
type NotificationWorker struct {
	logger  Logger
	sink    NotificationSink
	account string

	tasks    chan *notificationTask
	done     chan struct{}
	stopOnce sync.Once
}

func RunNotificationWorker(
	logger Logger,
	sink NotificationSink,
	account string,
	queueSize int,
) *NotificationWorker {
	if queueSize < 1 {
		queueSize = 1
	}

	worker := &NotificationWorker{
		logger:  logger,
		sink:    sink,
		account: account,
		tasks:   make(chan *notificationTask, queueSize),
		done:    make(chan struct{}),
	}

	go worker.loop()

	return worker
}

func (nw *NotificationWorker) loop() {
	defer close(nw.done)

	for task := range nw.tasks {
		if task.taskType == stopWorker {
			nw.logger.Debugf("notification worker stopped")
			return
		}

		nw.process(task)
	}
}

func (nw *NotificationWorker) process(task *notificationTask) {
	defer func() {
		if r := recover(); r != nil {
			nw.logger.Errorf("panic while processing [%v] task: [%v]", task.taskType, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()

	if err := nw.sink.Send(ctx, nw.message(task)); err != nil {
		nw.logger.Errorf("could not send [%v] notification: [%v]", task.taskType, err)
	}
}

func (nw *NotificationWorker) message(task *notificationTask) string {
	switch task.taskType {
	case notifyTransactions:
		lines := make([]string, 0, len(task.transactions)+1)
		lines = append(
			lines,
			fmt.Sprintf("Round %v: %v transaction(s)", task.roundID, len(task.transactions)),
		)
		for _, tx := range task.transactions {
			lines = append(lines, "- "+tx.String())
		}
		return strings.Join(lines, "\n")
	case notifyCashBalance:
		message := fmt.Sprintf("Cash balance: %v %v", task.balance, task.cash)
		if task.portfolio != nil {
			message += "\n" + task.portfolio.Message(nw.account)
		}
		return message
	default:
		panic("unexpected notification task type")
	}
}

// NotifyTransactions enqueues a batch of transactions from one round.
// It never blocks; the batch is dropped when the queue is full.
func (nw *NotificationWorker) NotifyTransactions(
	roundID string,
	transactions []Transaction,
) bool {
	if len(transactions) == 0 {
		return false
	}

	batch := make([]Transaction, len(transactions))
	copy(batch, transactions)

	return nw.enqueue(&notificationTask{
		taskType:     notifyTransactions,
		roundID:      roundID,
		transactions: batch,
	})
}

// NotifyCashBalance enqueues a cash balance update, optionally followed by
// a portfolio snapshot. It never blocks.
func (nw *NotificationWorker) NotifyCashBalance(
	cash Asset,
	balance decimal.Decimal,
	portfolio *PortfolioPnL,
) bool {
	return nw.enqueue(&notificationTask{
		taskType:  notifyCashBalance,
		cash:      cash,
		balance:   balance,
		portfolio: portfolio,
	})
}

func (nw *NotificationWorker) enqueue(task *notificationTask) bool {
	select {
	case <-nw.done:
		nw.logger.Warningf("notification worker stopped; dropping [%v] task", task.taskType)
		return false
	default:
	}

	select {
	case nw.tasks <- task:
		return true
	default:
		nw.logger.Warningf("notification queue full; dropping [%v] task", task.taskType)
		return false
	}
}

// Stop enqueues the stop task behind the pending ones and waits until the
// worker drained the queue.
func (nw *NotificationWorker) Stop() {
	nw.stopOnce.Do(func() {
		nw.tasks <- &notificationTask{taskType: stopWorker}
	})

	<-nw.done
}
