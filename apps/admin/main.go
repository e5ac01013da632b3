package main

import (
	"log"
	"os"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/attendance"
	"github.com/trezcool/comedor/core/promotion"
	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/services/email"
	"github.com/trezcool/comedor/services/logger"
	"github.com/trezcool/comedor/storage/database"
	"github.com/trezcool/comedor/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	defer logger.Flush()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	schoolRepo := sqlxrepos.NewSchoolRepository(db)

	// start CLI
	cli := commandLine{
		db:      db,
		out:     os.Stdout,
		usrRepo: sqlxrepos.NewUserRepository(db),
		attendanceSvc: attendance.NewService(
			db, sqlxrepos.NewAttendanceRepository(db), school.NewService(schoolRepo), mailSvc, conf,
		),
		promotionSvc: promotion.NewService(db, sqlxrepos.NewPromotionRepository(db), schoolRepo, conf, logger),
		conf:         conf,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		logger.Flush()
		os.Exit(1)
	}
}
