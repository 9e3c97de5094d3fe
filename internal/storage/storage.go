package storage

import "oraclepool/internal/model"

// Storage defines a sink for committed operation records.
type Storage interface {
	AppendOperations(ops []model.OperationRecord) error
}

// Multi fans records out to several sinks; the first failure stops the write.
type Multi []Storage

func (m Multi) AppendOperations(ops []model.OperationRecord) error {
	for _, s := range m {
		if err := s.AppendOperations(ops); err != nil {
			return err
		}
	}
	return nil
}
