package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/spreadcoin/spreadd/blockchain"
	"github.com/spreadcoin/spreadd/chaincfg"
)

// NetworkFlags holds the network configuration, that is which network is selected.
type NetworkFlags struct {
	TestNet            bool   `long:"testnet" description:"Use the test network"`
	UnitTest           bool   `long:"unittest" description:"Use the unit test network"`
	OverrideParamsFile string `long:"override-params-file" description:"Overrides chain params (allowed only on the unit test network)"`

	ActiveNetParams *chaincfg.Params
}

type overrideParamsConfig struct {
	PowLimit                 *string `json:"powLimit"`
	RetargetInterval         *int32  `json:"retargetInterval"`
	TargetTimespanSeconds    *int64  `json:"targetTimespanSeconds"`
	TargetTimePerBlockSecond *int64  `json:"targetTimePerBlockSeconds"`
	FirstForkHeight          *int32  `json:"firstForkHeight"`
	SecondForkHeight         *int32  `json:"secondForkHeight"`
	ThirdForkHeight          *int32  `json:"thirdForkHeight"`
	CoinbaseMaturity         *int32  `json:"coinbaseMaturity"`
	SubsidyReductionInterval *int32  `json:"subsidyReductionInterval"`
}

// ResolveNetwork parses the network command line argument and sets ActiveNetParams accordingly.
// It returns error if more than one network was selected, nil otherwise.
func (networkFlags *NetworkFlags) ResolveNetwork(parser *flags.Parser) error {
	// Multiple networks can't be selected simultaneously.
	numNets := 0
	// default net is main net
	// Count number of network flags passed; assign active network params
	// while we're at it
	params := chaincfg.MainNetParams
	if networkFlags.TestNet {
		numNets++
		params = chaincfg.TestNetParams
	}
	if networkFlags.UnitTest {
		numNets++
		params = chaincfg.UnitTestParams
	}
	if numNets > 1 {
		message := "Multiple networks parameters (testnet, unittest) cannot be used " +
			"together. Please choose only one network"
		err := errors.Errorf(message)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return err
	}

	// The active params are a private copy so overrides never leak into
	// the package level values.
	networkFlags.ActiveNetParams = &params
	err := networkFlags.overrideParams()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return err
	}

	log.Infof("Using the %s network", params.Name)
	return nil
}

// NetParams returns the ActiveNetParams
func (networkFlags *NetworkFlags) NetParams() *chaincfg.Params {
	return networkFlags.ActiveNetParams
}

func (networkFlags *NetworkFlags) overrideParams() error {
	if networkFlags.OverrideParamsFile == "" {
		return nil
	}

	if !networkFlags.UnitTest {
		return errors.Errorf("override-params-file is allowed only when using the unit test network")
	}

	overrideParamsFile, err := os.Open(networkFlags.OverrideParamsFile)
	if err != nil {
		return errors.WithStack(err)
	}
	defer overrideParamsFile.Close()

	decoder := json.NewDecoder(overrideParamsFile)
	decoder.DisallowUnknownFields()
	config := &overrideParamsConfig{}
	err = decoder.Decode(config)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", networkFlags.OverrideParamsFile)
	}

	params := networkFlags.ActiveNetParams
	if config.PowLimit != nil {
		powLimit, ok := big.NewInt(0).SetString(*config.PowLimit, 16)
		if !ok {
			return errors.Errorf("couldn't convert %s to big int", *config.PowLimit)
		}

		genesisTarget, err := blockchain.CompactToBig(params.GenesisBits)
		if err != nil {
			return err
		}
		if powLimit.Cmp(genesisTarget) < 0 {
			return errors.Errorf("powLimit (%s) is smaller than genesis's target (%s)", powLimit.Text(16),
				genesisTarget.Text(16))
		}
		params.PowLimit = powLimit
		params.PowLimitBits = blockchain.BigToCompact(powLimit)
	}

	if config.RetargetInterval != nil {
		if *config.RetargetInterval <= 0 {
			return errors.Errorf("retargetInterval must be positive, got %d", *config.RetargetInterval)
		}
		params.RetargetInterval = *config.RetargetInterval
	}

	if config.TargetTimespanSeconds != nil {
		params.TargetTimespan = time.Duration(*config.TargetTimespanSeconds) * time.Second
	}

	if config.TargetTimePerBlockSecond != nil {
		params.TargetTimePerBlock = time.Duration(*config.TargetTimePerBlockSecond) * time.Second
	}

	if config.FirstForkHeight != nil {
		params.FirstForkHeight = *config.FirstForkHeight
	}

	if config.SecondForkHeight != nil {
		params.SecondForkHeight = *config.SecondForkHeight
	}

	if config.ThirdForkHeight != nil {
		params.ThirdForkHeight = *config.ThirdForkHeight
	}

	if config.CoinbaseMaturity != nil {
		params.CoinbaseMaturity = *config.CoinbaseMaturity
	}

	if config.SubsidyReductionInterval != nil {
		params.SubsidyReductionInterval = *config.SubsidyReductionInterval
	}

	log.Warnf("Chain params overridden from %s", networkFlags.OverrideParamsFile)
	return nil
}
