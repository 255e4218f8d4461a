package server

import (
	"time"

	"auction-engine/services/bidding/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options holds the router's collaborators beyond the bidding service
type Options struct {
	Feed           FeedSource
	RequestTimeout time.Duration
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService handler.BiddingServiceInterface, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware)

	biddingHandler := handler.NewBiddingHandler(biddingService)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	api.Use(RequestTimeoutMiddleware(opts.RequestTimeout))

	auctions := api.Group("/auctions")
	{
		auctions.POST("", biddingHandler.CreateAuctionHandler)
		auctions.GET("", biddingHandler.ListAuctionsHandler)
		auctions.GET("/:auction_id", biddingHandler.GetAuctionHandler)

		auctions.POST("/:auction_id/bids", biddingHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", biddingHandler.GetBidsHandler)
		auctions.POST("/:auction_id/autobids", biddingHandler.RegisterAutoBidHandler)
		auctions.GET("/:auction_id/autobids", biddingHandler.ListAutoBidsHandler)

		auctions.POST("/:auction_id/start", biddingHandler.StartAuctionHandler)
		auctions.POST("/:auction_id/close", biddingHandler.CloseAuctionHandler)
		auctions.POST("/:auction_id/cancel", biddingHandler.CancelAuctionHandler)
		auctions.POST("/:auction_id/settle", biddingHandler.SettleAuctionHandler)

		auctions.PUT("/:auction_id/watchers/:user_id", biddingHandler.WatchHandler)
		auctions.DELETE("/:auction_id/watchers/:user_id", biddingHandler.UnwatchHandler)
	}

	users := api.Group("/users")
	{
		users.GET("/:user_id/bids", biddingHandler.GetUserBidsHandler)
	}

	api.POST("/scheduler/tick", biddingHandler.TickSchedulerHandler)

	// the feed is long-lived and stays outside the request timeout
	if opts.Feed != nil {
		router.GET("/auctions/:auction_id/feed", FeedHandler(opts.Feed))
	}

	return router
}
