package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/zintix-labs/unboxlab"
	"github.com/zintix-labs/unboxlab/demo/demo_configs"
	"github.com/zintix-labs/unboxlab/sdk/core"
	"github.com/zintix-labs/unboxlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	id        spec.BID
	worker    int
	lanes     int
	opens     int
	fast      bool
	present   bool
	seed      int64
	pprofmode string
}

type bidFlag struct{ p *spec.BID }

func (f bidFlag) String() string { return fmt.Sprint(uint32(*f.p)) }
func (f bidFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*f.p = spec.BID(uint32(u))
	return nil
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.Var(bidFlag{&cfg.id}, "box", "target box id")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.lanes, "lanes", 1, "reel lanes per open (1..4)")
	flag.IntVar(&cfg.opens, "opens", 10000000, "opens to simulate")
	flag.BoolVar(&cfg.fast, "fast", false, "fast presentation timing (present mode only)")
	flag.BoolVar(&cfg.present, "present", false, "drive the full reel presentation per open")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed illeagel -> default seed
	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

// 這裡解析並分支要執行的模擬器
func executeSimulator() {
	cfg.valid() // 基本檢查

	lab, err := unboxlab.NewAuto(
		core.Default(),
		unboxlab.Configs(demo_configs.FS),
	)
	if err != nil {
		log.Fatal(err)
	}
	s, err := lab.NewSimulatorWithSeed(cfg.id, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	ent, _ := lab.EntryById(cfg.id)
	cfg.name = ent.Name
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.present { // 演出驗證模擬
		p.Printf("%s[BOX:%s] [PRESENT LANES:%d] [OPENS:%d]%s\n", green, cfg.name, cfg.lanes, cfg.opens, reset)
		start := time.Now()
		rep, err := s.SimPresent(cfg.lanes, cfg.opens, cfg.fast, true)
		if err != nil {
			log.Fatal(err)
		}
		used := time.Since(start)
		p.Printf("opens: %d  lanes: %d  completed: %d\n", rep.Opens, rep.Lanes, rep.Completed)
		p.Printf("center events: %d  clock steps: %d\n", rep.CenterEvents, rep.Steps)
		p.Printf("all settled on result slot: %v\n", rep.AllOnResult)
		p.Printf("used: %.2f seconds\n", used.Seconds())
		return
	}

	if cfg.worker == 1 { // 單線程
		p.Printf("%s[BOX:%s] [LANES:%d] [OPENS:%d]%s\n", green, cfg.name, cfg.lanes, cfg.opens, reset)
		start := time.Now()
		st, err := s.Sim(cfg.lanes, cfg.opens, true)
		if err != nil {
			log.Fatal(err)
		}
		st.StdOut(time.Since(start))
	} else {
		p.Printf("%s[WORKERS:%d] [BOX:%s] [LANES:%d] [OPENS:%d]%s\n", green, cfg.worker, cfg.name, cfg.lanes, cfg.opens, reset)
		start := time.Now()
		st, est, err := s.SimMP(cfg.lanes, cfg.opens, cfg.worker, true) // 併發
		if err != nil {
			log.Fatal(err)
		}
		st.StdOut(time.Since(start))
		est.Out()
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}

	// 道數檢查
	if cfg.lanes < 1 || cfg.lanes > 4 {
		log.Fatal("value err : lanes must be between 1 and 4")
	}

	// 開箱數檢查
	if cfg.opens < 1 {
		log.Fatal("value err : opens must > 0")
	}

	// 演出模擬每次都要在合成時鐘上走完整場滑行，逐格推進成本高，
	// 超過 10k 場的演出驗證已無額外意義，直接 resize
	if cfg.present && cfg.opens > 10000 {
		p.Printf("too much opens for presentation : %d resized to 10k opens\n", cfg.opens)
		cfg.opens = 10000
	}
}
