package calibrate

import "github.com/lexicone42/setbreak-sub000/internal/logger"

func getLogger() logger.Logger {
	return logger.Global().Module("calibrate")
}
