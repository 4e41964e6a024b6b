package swift

import (
	"github.com/sirupsen/logrus"

	"github.com/objectfs/swiftclient/pkg/config"
	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/utils"
)

func newLogger(cfg config.LoggingConfig) (*logrus.Logger, error) {
	logger, err := utils.NewLogger(cfg.Level, cfg.File, cfg.Format)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, err.Error()).
			WithComponent("swift").WithCause(err)
	}
	return logger, nil
}
